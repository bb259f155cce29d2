package storage

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/afero"
)

// ErrInvalidKey is returned for keys that cannot name an entry
var ErrInvalidKey = errors.New("invalid storage key")

// Store persists JSON encoded values under string keys
type Store interface {
	// Save replaces the value stored under key
	Save(key string, value any) error
	// Load decodes the value under key into dst. found is false when the key
	// was never saved; dst is left untouched then.
	Load(key string, dst any) (found bool, err error)
	Close() error
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, r := range key {
		if r == '/' || r == '\\' || r == 0 {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	if key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend rooted at dir on the real filesystem
func Open(backend string, dir string, logger *log.Logger) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(afero.NewOsFs(), dir, logger)
	case BackendSQLite:
		return OpenSQLiteStore(dir, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
