// Package storage persists extracted extension resources in a blob
// store keyed by extension coordinates. Backends exist for the local
// filesystem, AWS S3 and Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vsxhub/vsxhub/pkg/extension"
)

// BlobStore is the contract for resource blob persistence. Keys are
// slash-separated paths produced by ResourceKey.
type BlobStore interface {
	// Put persists content under the given key, overwriting any
	// previous content.
	Put(ctx context.Context, key string, content []byte) error
	// Get retrieves the content stored under the key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether the key holds content.
	Exists(ctx context.Context, key string) (bool, error)
	// Remove deletes the key's content. Removing an absent key is not
	// an error.
	Remove(ctx context.Context, key string) error
}

// ResourceKey derives the storage key for an extracted resource:
// namespace/name/version/resource-name. Web resources carry their full
// entry path as name, which keeps their tree structure under the
// version prefix.
func ResourceKey(res *extension.Resource) string {
	name := res.Name
	if name == "" {
		// The download resource has no entry name of its own.
		name = fmt.Sprintf("%s.%s-%s.vsix", res.Extension.Namespace, res.Extension.Name, res.Extension.Version)
	}
	return path.Join(res.Extension.Namespace, res.Extension.Name, res.Extension.Version, name)
}

// validateKey rejects keys that would escape the store's root.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("storage: empty key")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("storage: absolute key %q", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("storage: invalid key %q", key)
		}
	}
	return nil
}

// FileStore is a filesystem-backed implementation of BlobStore.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a blob store rooted at the specified directory.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) keyPath(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(key)), nil
}

func (s *FileStore) Put(ctx context.Context, key string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("storage: ensure key dir: %w", err)
	}

	// Write to temp, then rename, so readers never see a partial blob.
	tmpPath := target + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o644); err != nil {
		return fmt.Errorf("storage: write blob: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("storage: commit blob: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: blob not found: %s", key)
		}
		return nil, err
	}
	defer f.Close() //nolint:errcheck // best-effort close

	return io.ReadAll(f)
}

func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, err := s.keyPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(target)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *FileStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.keyPath(key)
	if err != nil {
		return err
	}
	err = os.Remove(target)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete blob: %w", err)
	}
	return nil
}
