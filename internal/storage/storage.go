// Package storage persists generated STAC items, either on the local
// filesystem or in an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes one named item document and reports where it ended up.
type Store interface {
	SaveItem(ctx context.Context, name string, item []byte) (string, error)
}

// LocalStore writes items into a directory.
type LocalStore struct {
	Dir string
}

// SaveItem writes the item to <dir>/<name> and returns the path.
func (s *LocalStore) SaveItem(_ context.Context, name string, item []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating item directory: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, item, 0o644); err != nil {
		return "", fmt.Errorf("writing item %s: %w", name, err)
	}
	return path, nil
}
