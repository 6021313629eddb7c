package objstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore reads and writes objects on the local filesystem.
type LocalStore struct{}

// NewLocalStore creates a filesystem-backed store.
func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

// Read returns the file contents, or ErrNotFound if the file is missing.
func (s *LocalStore) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s; %w", path, err)
	}
	return data, nil
}

// Write writes the file, creating parent directories as needed.
func (s *LocalStore) Write(ctx context.Context, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s; %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s; %w", path, err)
	}
	return nil
}
