package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// StaticBackend is a deterministic, dependency-free CPU backend used for
// tests, offline development, and as the CPU-fallback target when no
// native accelerator library is configured. Vectors are derived from a
// hash of the input text, seeded per-dimension; they carry no semantic
// meaning but have a fixed dimension and are deterministic for identical
// input. They are not L2-normalised here; Engine normalises each row.
type StaticBackend struct {
	dim int
}

// NewStaticBackend returns a StaticBackend producing dim-length vectors.
func NewStaticBackend(dim int) *StaticBackend {
	return &StaticBackend{dim: dim}
}

func (s *StaticBackend) Dimensions() int   { return s.dim }
func (s *StaticBackend) ModelName() string { return "static-hash-fallback" }

func (s *StaticBackend) EncodeBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		out[i] = hashEmbed(text, s.dim)
	}
	return out, nil
}

func (s *StaticBackend) Reinitialise(forceCPU bool) error { return nil }
func (s *StaticBackend) Close() error                     { return nil }

// hashEmbed derives a deterministic pseudo-embedding from text by hashing
// it together with a per-dimension salt: no semantic content, but every
// structural invariant a real embedder would satisfy still holds.
func hashEmbed(text string, dim int) []float32 {
	v := make([]float32, dim)
	block := sha256.Sum256([]byte(text))
	for i := 0; i < dim; i++ {
		salted := append(block[:], byte(i), byte(i>>8))
		h := sha256.Sum256(salted)
		u := binary.LittleEndian.Uint32(h[:4])
		// Map to [-1, 1).
		v[i] = float32(int32(u))/float32(1<<31)
	}
	return v
}
