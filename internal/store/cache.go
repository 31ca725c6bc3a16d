package store

import (
	"encoding/gob"
	"os"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// Cache is the incremental reuse cache: path -> {content_hash, chunk_count,
// first_global_index}. A corrupt cache file is recoverable simply by
// deleting it, which forces a full rebuild.
type Cache map[string]CacheEntry

// LoadCache reads the gob-encoded cache at path. A missing file returns an
// empty, non-nil Cache rather than an error (no prior generation to reuse).
func LoadCache(path string) (Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Cache{}, nil
		}
		return nil, coreerrors.Wrap(coreerrors.KindIO, "open cache file", err)
	}
	defer f.Close()

	var c Cache
	if err := gob.NewDecoder(f).Decode(&c); err != nil {
		// Corruption is recoverable: callers treat this as "no cache".
		return Cache{}, nil
	}
	if c == nil {
		c = Cache{}
	}
	return c, nil
}

// SaveCache gob-encodes c to path.
func SaveCache(path string, c Cache) error {
	f, err := os.Create(path)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "create cache file", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(c); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "encode cache", err)
	}
	return f.Sync()
}
