package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/mod/sumdb/dirhash"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/utils"
)

// ManifestName is the file recording what a conversion wrote to the output directory
const ManifestName = "as2amd.manifest.json"

// Manifest lists the modules of one conversion
type Manifest struct {
	RunID        string          `json:"run_id"`
	SourceDigest string          `json:"source_digest"`
	OutputDigest string          `json:"output_digest"`
	Modules      []ManifestEntry `json:"modules"`
}

// ManifestEntry describes one emitted module
type ManifestEntry struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Members []string `json:"members,omitempty"` // merged modules only
	Target  string   `json:"target,omitempty"`  // redirects only
}

// Files returns the module paths the manifest covers
func (m *Manifest) Files() []string {
	files := make([]string, len(m.Modules))
	for i, e := range m.Modules {
		files[i] = e.ID
	}
	return files
}

// NewManifest describes a build
func NewManifest(b *Build) (*Manifest, error) {
	digest, err := OutputDigest(b.Modules)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		RunID:        b.RunID.String(),
		SourceDigest: b.SourceDigest,
		OutputDigest: digest,
		Modules:      make([]ManifestEntry, 0, len(b.Modules)),
	}
	for _, mod := range b.Modules {
		entry := ManifestEntry{ID: string(mod.ID), Kind: mod.Kind.String()}
		if em, ok := b.Result.Output.Get(mod.ID); ok {
			switch v := em.(type) {
			case *models.MergedModule:
				for _, member := range v.Members {
					entry.Members = append(entry.Members, string(member.ID))
				}
			case *models.RedirectModule:
				entry.Target = string(v.Target)
			}
		}
		m.Modules = append(m.Modules, entry)
	}
	return m, nil
}

// OutputDigest returns the dirhash h1 digest of rendered modules
func OutputDigest(mods []*models.GeneratedModule) (string, error) {
	byID := make(map[string]string, len(mods))
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		byID[string(m.ID)] = m.Content
		names = append(names, string(m.ID))
	}
	sort.Strings(names)
	return dirhash.Hash1(names, func(name string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(byID[name])), nil
	})
}

// ReadManifest loads the manifest of outDir. It returns nil when none exists.
func ReadManifest(fs afero.Fs, outDir string) (*Manifest, error) {
	path := filepath.Join(outDir, ManifestName)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapFileSystemError("read", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapFileSystemError("decode", path, err)
	}
	return &m, nil
}

// Writer stores builds in an output directory
type Writer struct {
	fs   afero.Fs
	proc *utils.FileProcessor
}

// NewWriter creates a writer over fs
func NewWriter(fs afero.Fs) *Writer {
	return &Writer{fs: fs, proc: utils.NewFileProcessor(fs)}
}

// WriteResult is what Write changed on disk
type WriteResult struct {
	Manifest *Manifest
	Written  []string
	Removed  []string
}

// Write stores every module of b under outDir, removes the modules an earlier
// manifest listed that b no longer emits, then writes the new manifest.
func (w *Writer) Write(outDir string, b *Build) (*WriteResult, error) {
	manifest, err := NewManifest(b)
	if err != nil {
		return nil, err
	}

	previous, err := ReadManifest(w.fs, outDir)
	if err != nil {
		return nil, err
	}

	current := make(map[string]bool, len(b.Modules))
	for _, m := range b.Modules {
		current[string(m.ID)] = true
	}

	var stale []string
	if previous != nil {
		for _, id := range previous.Files() {
			if !current[id] {
				stale = append(stale, id)
			}
		}
	}
	removed, err := w.proc.RemoveFiles(outDir, stale)
	if err != nil {
		return nil, err
	}

	res := &WriteResult{Manifest: manifest, Removed: removed}
	for _, m := range b.Modules {
		path := filepath.Join(outDir, filepath.FromSlash(string(m.ID)))
		if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.WrapFileSystemError("create directory for", path, err)
		}
		if err := afero.WriteFile(w.fs, path, []byte(m.Content), 0o644); err != nil {
			return nil, utils.WrapWriteError(path, err)
		}
		res.Written = append(res.Written, string(m.ID))
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.WrapFileSystemError("encode", ManifestName, err)
	}
	path := filepath.Join(outDir, ManifestName)
	if err := afero.WriteFile(w.fs, path, append(data, '\n'), 0o644); err != nil {
		return nil, utils.WrapWriteError(path, err)
	}

	return res, nil
}
