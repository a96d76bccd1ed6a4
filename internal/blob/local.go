package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

var _ Store = (*LocalStore)(nil)

// LocalStore writes attachments to a directory served statically under
// /uploads/.
type LocalStore struct {
	dir string
}

// NewLocalStore ensures the directory exists and returns the store.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the backing directory, for static file serving.
func (l *LocalStore) Dir() string { return l.dir }

// Save writes the file and returns its relative URL.
func (l *LocalStore) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(l.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return "/uploads/" + filepath.Base(name), nil
}
