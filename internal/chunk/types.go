// Package chunk splits C++ source text into overlapping chunks that
// respect syntactic boundaries where possible, and carries the Chunk value
// type shared by the rest of the engine.
package chunk

// Origin mirrors discovery.Origin without importing it, keeping chunk
// free of a dependency on the discovery package.
type Origin string

const (
	OriginEngine  Origin = "engine"
	OriginProject Origin = "project"
)

// Chunk is an immutable slice of source text with positional metadata.
// Text is not persisted; it is recoverable on demand from Path plus
// CharStart/CharEnd.
type Chunk struct {
	Path        string
	ChunkIndex  int
	TotalChunks int
	CharStart   int
	CharEnd     int
	Text        string
	ContentHash string
	Origin      Origin

	// Enrichment fields, all optional, populated by package enrich.
	Entities         []string
	EntityTypes      []string
	HasUProperty     bool
	HasUClass        bool
	HasUFunction     bool
	HasUStruct       bool
	HasUEnum         bool
	IsHeader         bool
	IsImplementation bool
	Invalid          bool
}

// Span returns the chunk's (start, end) byte offsets.
func (c Chunk) Span() (int, int) { return c.CharStart, c.CharEnd }
