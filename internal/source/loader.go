// Package source reads a project tree into the ordered set of source files a
// conversion run starts from.
package source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/mod/sumdb/dirhash"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/report"
	"github.com/toyz/as2amd/internal/utils"
)

// PhaseRead names events and errors produced while reading sources
const PhaseRead = "read"

// Options control which files are read and how
type Options struct {
	// IgnoreDotFiles skips every file or directory whose name starts with a dot
	IgnoreDotFiles bool
	// NoSubstitutions reads the JSON library files from disk instead of
	// replacing them with the bundled versions
	NoSubstitutions bool
}

// Loader reads .as files below a root through an afero file system
type Loader struct {
	proc     *utils.FileProcessor
	reporter report.Reporter
	opts     Options
}

// NewLoader creates a loader over fs. A nil reporter discards events.
func NewLoader(fs afero.Fs, reporter report.Reporter, opts Options) *Loader {
	if reporter == nil {
		reporter = report.Null{}
	}
	return &Loader{proc: utils.NewFileProcessor(fs), reporter: reporter, opts: opts}
}

// List returns the slash-separated paths of every source file below root,
// sorted
func (l *Loader) List(root string) ([]string, error) {
	opts := utils.FileWalkOptions{FileFilter: utils.SuffixFilter(models.SourceSuffix)}
	if l.opts.IgnoreDotFiles {
		opts.FileFilter = utils.VisibleFilter(opts.FileFilter)
		opts.DirectoryFilter = utils.VisibleDirectoryFilter()
	}
	return l.proc.WalkFiles(root, opts)
}

// Load reads every source file below root in List order. Unreadable files are
// collected; if any fail, a PhaseError holding every IoError is returned and
// no files.
func (l *Loader) Load(ctx context.Context, root string) ([]models.SourceFile, error) {
	paths, err := l.List(root)
	if err != nil {
		ioErr := errors.WrapIOError(root, err)
		l.reporter.Error(PhaseRead, ioErr)
		return nil, errors.NewPhaseError("IO error", errors.CollectErrors(ioErr))
	}

	before := l.proc.GetFileReader().GetCacheStats()
	files := make([]models.SourceFile, 0, len(paths))
	var multi *errors.MultipleErrors
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := l.read(root, rel)
		if err != nil {
			ioErr := errors.WrapIOError(rel, err)
			l.reporter.Error(PhaseRead, ioErr)
			errors.AddToMultiple(&multi, ioErr, errors.IOErrorCode)
			continue
		}
		files = append(files, models.SourceFile{Path: rel, Text: text})
	}

	if multi != nil {
		return nil, errors.NewPhaseError("IO error", multi)
	}

	stats := l.proc.GetFileReader().GetCacheStats()
	l.reporter.Step(report.Event{
		Phase:   PhaseRead,
		Message: fmt.Sprintf("read %d files, %d unchanged since the last load", len(files), stats.Hits-before.Hits),
		Level:   report.LevelDebug,
		Context: map[string]any{"cache_size": stats.Size, "cache_hits": stats.Hits, "cache_misses": stats.Misses},
	})
	return files, nil
}

func (l *Loader) read(root, rel string) (string, error) {
	fields := map[string]any{"filename": rel}

	if !l.opts.NoSubstitutions {
		if name, ok := Substitution(rel); ok {
			fields["substitute"] = name
			l.reporter.Step(report.Event{Phase: PhaseRead, Message: "reading " + rel, Level: report.LevelDebug, Context: fields})
			return Bundled(name)
		}
	}

	l.reporter.Step(report.Event{Phase: PhaseRead, Message: "reading " + rel, Level: report.LevelDebug, Context: fields})
	return l.proc.GetFileReader().ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
}

// Digest returns the dirhash h1 digest of a source set. It covers paths and
// texts after substitution, so equal digests convert to equal output.
func Digest(files []models.SourceFile) (string, error) {
	byPath := make(map[string]string, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		byPath[f.Path] = f.Text
		names = append(names, f.Path)
	}
	return dirhash.Hash1(names, func(name string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(byPath[name])), nil
	})
}
