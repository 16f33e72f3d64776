package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	checkpointFile = "checkpoint.json"
	tmpSuffix      = ".tmp"
)

// FileStorage keeps the checkpoint as a JSON file, replaced by write-then-rename
type FileStorage struct {
	dir string
}

// NewFileStorage creates a FileStorage rooted at dir
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Path returns the location of the checkpoint file
func (fs *FileStorage) Path() string {
	return filepath.Join(fs.dir, checkpointFile)
}

// Write stores data in a temp file, syncs it and renames it over the checkpoint
func (fs *FileStorage) Write(_ context.Context, data []byte) error {
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	finalPath := fs.Path()
	tmpPath := finalPath + tmpSuffix

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create checkpoint file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write checkpoint file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync checkpoint file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close checkpoint file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename checkpoint file: %w", err)
	}
	return nil
}

// ReadLatest returns the checkpoint file contents or ErrNoCheckpoint
func (fs *FileStorage) ReadLatest(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(fs.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	return data, nil
}

// Clear deletes the checkpoint and any leftover temp file
func (fs *FileStorage) Clear(_ context.Context) error {
	for _, p := range []string{fs.Path(), fs.Path() + tmpSuffix} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove checkpoint: %w", err)
		}
	}
	return nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}
