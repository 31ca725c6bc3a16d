package store

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"time"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// VectorStore is the pair (Embeddings[N×D], Metadata[N]) described by the
// data model, loaded via memory mapping with metadata parsed eagerly.
type VectorStore struct {
	dir     string
	vectors *MappedVectors
	records []Record
	header  Header
}

// Dir returns the store's backing directory.
func (s *VectorStore) Dir() string { return s.dir }

// Len returns the row count N.
func (s *VectorStore) Len() int { return len(s.records) }

// Dim returns the embedding dimension D.
func (s *VectorStore) Dim() int { return s.header.Dim }

// Record returns the metadata record at row i.
func (s *VectorStore) Record(i int) Record { return s.records[i] }

// Records returns every metadata record, in index order.
func (s *VectorStore) Records() []Record { return s.records }

// Vector returns a copy of the embedding row at i.
func (s *VectorStore) Vector(i int) []float32 { return s.vectors.Row(i) }

// Header returns the store generation's header.
func (s *VectorStore) Header() Header { return s.header }

// Close releases the mmap'd vectors file.
func (s *VectorStore) Close() error {
	if s.vectors == nil {
		return nil
	}
	return s.vectors.Close()
}

// Open loads an existing store generation from dir: mmaps the vectors
// file read-only and parses metadata eagerly. It aborts with Corrupt if
// row counts disagree or DimMismatch if embeddingDim doesn't match the
// configured model (pass 0 to skip that check, e.g. for inspection tools).
func Open(dir string, embeddingDim int) (*VectorStore, error) {
	vecPath := filepath.Join(dir, VectorsFileName)
	metaPath := filepath.Join(dir, MetadataDBName)

	if _, err := os.Stat(vecPath); err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindNotFound, "vectors file missing", err)
	}

	mv, err := OpenVectorsMmap(vecPath)
	if err != nil {
		return nil, err
	}
	records, hdr, err := ReadMetadataDB(metaPath)
	if err != nil {
		mv.Close()
		return nil, err
	}
	hdr.Version = mv.Header.Version
	hdr.Dim = mv.Header.Dim
	hdr.ModelDigest = mv.Header.ModelDigest
	if mv.Header.ModelName != "" {
		hdr.ModelName = mv.Header.ModelName
	}

	if len(records) != mv.Header.Rows {
		mv.Close()
		return nil, coreerrors.New(coreerrors.KindCorrupt, "metadata row count does not match vectors row count")
	}
	if embeddingDim != 0 && mv.Header.Dim != embeddingDim {
		mv.Close()
		return nil, coreerrors.New(coreerrors.KindDimMismatch, "stored embedding_dim does not match configured dimension")
	}

	return &VectorStore{dir: dir, vectors: mv, records: records, header: hdr}, nil
}

// Build writes a brand new store generation to dir using the atomic
// *.new / fsync / rename pattern: no reader ever observes a partially
// written store, and a failed build leaves any prior generation intact.
// Callers must hold the directory's WriteLock for the duration of the call.
func Build(dir, modelName string, vectors [][]float32, records []Record) error {
	if len(vectors) != len(records) {
		return coreerrors.New(coreerrors.KindCorrupt, "vector count does not match metadata count")
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "create store directory", err)
	}

	generationID := newGenerationID()
	digest := sha256.Sum256([]byte(modelName))

	vecPath := filepath.Join(dir, VectorsFileName)
	metaPath := filepath.Join(dir, MetadataDBName)
	vecNew := vecPath + ".new"
	metaNew := metaPath + ".new"
	os.Remove(metaNew) // sqlite refuses to create over a stale partial file

	if err := WriteVectorsFile(vecNew, dim, modelName, digest, vectors); err != nil {
		os.Remove(vecNew)
		return err
	}
	if err := WriteMetadataDB(metaNew, generationID, modelName, dim, records); err != nil {
		os.Remove(vecNew)
		os.Remove(metaNew)
		return err
	}

	if err := os.Rename(vecNew, vecPath); err != nil {
		os.Remove(vecNew)
		os.Remove(metaNew)
		return coreerrors.Wrap(coreerrors.KindIO, "rename vectors file into place", err)
	}
	if err := os.Rename(metaNew, metaPath); err != nil {
		// Vectors already moved; metadata failed. The prior metadata.db
		// (if any) is still in place but now paired with new vectors.
		// This is the one window the atomic-rename design accepts: both
		// renames are fast local filesystem ops and failure here implies
		// filesystem-level trouble the caller must handle by rebuilding.
		return coreerrors.Wrap(coreerrors.KindIO, "rename metadata db into place", err)
	}
	return nil
}

func newGenerationID() string {
	return time.Now().UTC().Format("20060102T150405.000000000Z")
}
