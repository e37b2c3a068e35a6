// Package screenshot stores the audit screenshots of rebooking runs.
package screenshot

//go:generate mockgen -source=store.go -destination=mock_store.go -package=screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists one screenshot and returns a reference to it (a path or URI).
type Store interface {
	Save(ctx context.Context, name string, png []byte) (string, error)
}

// validateName rejects names that would escape the store root.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("screenshot name is empty")
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("screenshot name must be relative: %q", name)
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return fmt.Errorf("path traversal detected in screenshot name %q", name)
		}
	}
	return nil
}

// LocalStore writes screenshots below a directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir. The directory is created on first save.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Save writes png to dir/name and returns the file path.
func (s *LocalStore) Save(ctx context.Context, name string, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

var _ Store = (*LocalStore)(nil)
