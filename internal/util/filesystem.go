package util

import (
	"os"
	"path/filepath"
)

// EnsureDir creates the directory for the given file path if it is absent
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0o755)
}

// GetFileMetadata returns size in bytes and mtime (Unix seconds) for a path
func GetFileMetadata(path string) (int64, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Size(), info.ModTime().Unix(), nil
}
