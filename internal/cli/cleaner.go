package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/utils"
)

// Cleaner removes the output of earlier conversions
type Cleaner struct {
	fs   afero.Fs
	proc *utils.FileProcessor
}

// NewCleaner creates a cleaner over fs
func NewCleaner(fs afero.Fs) *Cleaner {
	return &Cleaner{fs: fs, proc: utils.NewFileProcessor(fs)}
}

// Clean removes every module the manifest in outDir lists, then the manifest.
// Files the manifest does not list are left alone. An output directory without
// a manifest is not an error.
func (c *Cleaner) Clean(outDir string) ([]string, error) {
	manifest, err := ReadManifest(c.fs, outDir)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, nil
	}

	removed, err := c.proc.RemoveFiles(outDir, manifest.Files())
	if err != nil {
		return removed, err
	}

	path := filepath.Join(outDir, ManifestName)
	if err := c.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return removed, errors.WrapFileSystemError("remove", path, err)
	}
	return removed, nil
}
