package repository

import (
	"bytes"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/cadence-timer/internal/storage"
)

var testNow = time.Date(2025, 6, 1, 7, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func testLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func memStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.NewFileStore(afero.NewMemMapFs(), "/data", testLogger())
	require.NoError(t, err)
	return s
}

// failingStore loads nothing and refuses every save
type failingStore struct {
	loadErr error
}

var errDiskFull = errors.New("disk full")

func (f failingStore) Save(string, any) error { return errDiskFull }
func (f failingStore) Load(string, any) (bool, error) {
	if f.loadErr != nil {
		return true, f.loadErr
	}
	return false, nil
}
func (f failingStore) Close() error { return nil }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
