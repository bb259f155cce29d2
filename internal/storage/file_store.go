package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileStore keeps one indented JSON file per key inside a directory
type FileStore struct {
	fs     afero.Fs
	dir    string
	logger *log.Logger
	mu     sync.Mutex
}

// NewFileStore creates dir if needed. Pass afero.NewOsFs() for the real disk.
func NewFileStore(fsys afero.Fs, dir string, logger *log.Logger) (*FileStore, error) {
	if logger == nil {
		panic("FileStore: logger cannot be nil")
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	return &FileStore{fs: fsys, dir: dir, logger: logger}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *FileStore) Save(key string, value any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// write next to the target and rename so readers never see half a file
	tmp := s.path(key) + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("replacing %s: %w", key, err)
	}
	s.logger.Printf("FileStore: Saved %s (%d bytes)", key, len(raw))
	return nil
}

func (s *FileStore) Load(key string, dst any) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	s.mu.Lock()
	raw, err := afero.ReadFile(s.fs, s.path(key))
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *FileStore) Close() error {
	return nil
}
