package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// FileStore keeps one file per key on an afero filesystem.
type FileStore struct {
	mu sync.Mutex
	fs afero.Fs
}

// NewFileStore creates a store rooted at fs.
func NewFileStore(fs afero.Fs) *FileStore {
	return &FileStore{fs: fs}
}

func fileName(key string) string {
	return url.PathEscape(key) + ".json"
}

// Get reads the file of key.
func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fs == nil {
		return "", false, ErrClosed
	}

	b, err := afero.ReadFile(s.fs, fileName(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read record for %q: %w", key, err)
	}
	return string(b), true, nil
}

// Set writes the file of key through a temporary file and a rename.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fs == nil {
		return ErrClosed
	}

	name := fileName(key)
	tmp := name + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(value), 0o600); err != nil {
		return fmt.Errorf("write record for %q: %w", key, err)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		return fmt.Errorf("commit record for %q: %w", key, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	s.fs = nil
	s.mu.Unlock()
	return nil
}
