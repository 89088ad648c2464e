package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ProjectResolver finds the project a command runs against
type ProjectResolver struct {
	fs afero.Fs
}

// NewProjectResolver creates a resolver over fs
func NewProjectResolver(fs afero.Fs) *ProjectResolver {
	return &ProjectResolver{fs: fs}
}

// FindProjectRoot walks up from start looking for a config file. It returns
// the directory holding it, or start itself when no config file exists.
func (r *ProjectResolver) FindProjectRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory %s: %w", start, err)
	}

	dir := abs
	for {
		if findConfigFile(r.fs, dir) != "" {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			return abs, nil
		}
		dir = parent
	}
}

// ResolveRoot makes a configured source root absolute against the project
// directory, leaving absolute roots alone
func (r *ProjectResolver) ResolveRoot(projectDir, root string) string {
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Join(projectDir, root)
}
