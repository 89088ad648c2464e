package utils

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileFilter decides whether a file is collected. rel is slash-separated and
// relative to the walk root.
type FileFilter func(rel string, info os.FileInfo) bool

// DirectoryFilter decides whether a directory is descended into
type DirectoryFilter func(rel string, info os.FileInfo) bool

// FileWalkOptions configures file walking behavior
type FileWalkOptions struct {
	FileFilter      FileFilter
	DirectoryFilter DirectoryFilter
	SkipErrors      bool
}

// SuffixFilter collects regular files ending in suffix
func SuffixFilter(suffix string) FileFilter {
	return func(rel string, info os.FileInfo) bool {
		return !info.IsDir() && strings.HasSuffix(info.Name(), suffix)
	}
}

// VisibleFilter wraps next, rejecting files whose name starts with a dot
func VisibleFilter(next FileFilter) FileFilter {
	return func(rel string, info os.FileInfo) bool {
		if IsHidden(info.Name()) {
			return false
		}
		return next == nil || next(rel, info)
	}
}

// VisibleDirectoryFilter skips hidden directories such as .git or .svn
func VisibleDirectoryFilter() DirectoryFilter {
	return func(rel string, info os.FileInfo) bool {
		return !IsHidden(info.Name())
	}
}

// IsHidden reports whether a path element is a dot file
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// FileProcessor walks and maintains files on an afero file system
type FileProcessor struct {
	fs         afero.Fs
	fileReader *FileReader
}

// NewFileProcessor creates a new file processor over fs
func NewFileProcessor(fs afero.Fs) *FileProcessor {
	return &FileProcessor{
		fs:         fs,
		fileReader: NewFileReader(fs),
	}
}

// WalkFiles returns the root-relative slash paths of every matching file, sorted
func (fp *FileProcessor) WalkFiles(rootDir string, options FileWalkOptions) ([]string, error) {
	var matchedFiles []string

	err := afero.Walk(fp.fs, rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if options.SkipErrors {
				return nil
			}
			return err
		}

		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && options.DirectoryFilter != nil && !options.DirectoryFilter(rel, info) {
				return filepath.SkipDir
			}
			return nil
		}

		if options.FileFilter == nil || options.FileFilter(rel, info) {
			matchedFiles = append(matchedFiles, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matchedFiles)
	return matchedFiles, nil
}

// RemoveFiles deletes the given root-relative files and returns those removed.
// Files that no longer exist are skipped.
func (fp *FileProcessor) RemoveFiles(rootDir string, rels []string) ([]string, error) {
	var removed []string
	for _, rel := range rels {
		path := filepath.Join(rootDir, filepath.FromSlash(rel))
		if err := fp.fs.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, WrapProcessError("file removal "+path, err)
		}
		fp.fileReader.InvalidateFile(path)
		removed = append(removed, rel)
	}
	return removed, nil
}

// GetFileReader returns the underlying FileReader for advanced operations
func (fp *FileProcessor) GetFileReader() *FileReader {
	return fp.fileReader
}

// Fs returns the file system the processor works on
func (fp *FileProcessor) Fs() afero.Fs {
	return fp.fs
}
