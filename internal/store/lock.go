package store

import (
	"path/filepath"

	"github.com/gofrs/flock"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// WriteLock is the exclusive-writer enforcement described in the
// concurrency model: only one indexer may run against a given store
// directory at a time, via a file lock on a sentinel in that directory.
type WriteLock struct {
	fl *flock.Flock
}

// AcquireWriteLock tries to exclusively lock dir's sentinel file,
// returning an error if another writer already holds it.
func AcquireWriteLock(dir string) (*WriteLock, error) {
	fl := flock.New(filepath.Join(dir, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindIO, "acquire store write lock", err)
	}
	if !ok {
		return nil, coreerrors.New(coreerrors.KindIO, "store directory is locked by another writer")
	}
	return &WriteLock{fl: fl}, nil
}

// Release unlocks the sentinel file.
func (w *WriteLock) Release() error {
	return w.fl.Unlock()
}
