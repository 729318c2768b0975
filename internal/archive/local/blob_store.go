// Package local stores blob content on the local filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BlobStore writes artifacts under a root directory.
type BlobStore struct {
	root string
}

// NewBlobStore creates a filesystem blob store rooted at root.
func NewBlobStore(root string) (*BlobStore, error) {
	if root == "" {
		return nil, fmt.Errorf("archive root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &BlobStore{root: root}, nil
}

// PutObject persists the content under root/path and returns a file URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(f, data); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return "file://" + full, nil
}
