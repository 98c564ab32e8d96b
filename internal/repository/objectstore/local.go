package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements Store on a local directory. Keys map to file paths
// under the root; parent directories are created on write.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(key, "/")))
}

// Get implements Store
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put implements Store
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete implements Store
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Exists implements Store
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

// Label implements Store
func (s *LocalStore) Label() string {
	return "local"
}
