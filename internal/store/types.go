// Package store persists and loads a VectorStore: a flat, L2-normalised
// embedding matrix with a parallel metadata array, loaded via memory
// mapping and protected by a single-writer exclusive lock.
package store

import "time"

const (
	// StoreVersion is the current on-disk format version. A reader
	// refuses to open any other version; upgrading requires a rebuild.
	StoreVersion uint32 = 1

	vectorsMagic = "UE5SV001"

	VectorsFileName  = "vector_store.bin"
	MetadataDBName   = "vector_meta.db"
	CacheFileName    = "vector_cache.gob"
	LockFileName     = ".lock"
)

// Record is one metadata entry, in index order, parallel to the
// corresponding embedding row. Field names mirror the bit-stable record
// schema.
type Record struct {
	Path        string
	ChunkIndex  uint32
	TotalChunks uint32
	CharStart   uint64
	CharEnd     uint64
	ContentHash string
	Origin      string

	Entities    []string
	EntityTypes []string

	HasUProperty     bool
	HasUClass        bool
	HasUFunction     bool
	HasUStruct       bool
	HasUEnum         bool
	IsHeader         bool
	IsImplementation bool
	Invalid          bool
}

// Header describes one store generation.
type Header struct {
	Version      uint32
	GenerationID string
	ModelName    string
	ModelDigest  [32]byte
	Dim          int
	Rows         int
	CreatedAt    time.Time
}

// CacheEntry is one row of the incremental reuse cache.
type CacheEntry struct {
	ContentHash       string
	ChunkCount        int
	FirstGlobalIndex  int
}
