package utils

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileReader reads text files, caching contents until the file changes
type FileReader struct {
	fs           afero.Fs
	contentCache *Cache[string, string]
}

// NewFileReader creates a new FileReader instance with caching
func NewFileReader(fs afero.Fs) *FileReader {
	return &FileReader{
		fs:           fs,
		contentCache: NewCache[string, string](fs),
	}
}

// ReadFile reads a file and returns its contents as a string with caching
func (fr *FileReader) ReadFile(filePath string) (string, error) {
	if err := NotEmpty("filePath")(filePath); err != nil {
		return "", fmt.Errorf("file path %w", err)
	}
	cleanPath := filepath.Clean(filePath)

	if cached, exists := fr.contentCache.GetWithFileValidation(cleanPath, cleanPath); exists {
		return cached, nil
	}

	content, err := afero.ReadFile(fr.fs, cleanPath)
	if err != nil {
		return "", err
	}

	contentStr := string(content)
	// A failed stat only means the next read misses the cache.
	_ = fr.contentCache.SetWithFileInfo(cleanPath, contentStr, cleanPath)

	return contentStr, nil
}

// InvalidateFile removes a specific file from the cache
func (fr *FileReader) InvalidateFile(filePath string) {
	fr.contentCache.Delete(filepath.Clean(filePath))
}

// GetCacheStats returns statistics about the cache
func (fr *FileReader) GetCacheStats() CacheStats {
	return fr.contentCache.GetStats()
}
