// Package fileutil writes files so that readers see either the old content
// or the new, never a partial write.
package fileutil

import (
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic creates path's directory, streams the content produced by
// write into a temp file beside path and renames it into place. pattern is
// the os.CreateTemp pattern for the temp file.
func WriteAtomic(path, pattern string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := write(tmpFile); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return Replace(tmpFile.Name(), path)
}

// Replace renames tmpPath over destPath, removing destPath first on
// platforms where rename does not overwrite.
func Replace(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
