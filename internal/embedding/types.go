// Package embedding turns chunk texts into L2-normalised float32 vectors
// using a pluggable backend, with accelerator/CPU fallback and adaptive
// batch sizing.
package embedding

import (
	"context"
	"math"
)

// Backend is the pluggable, model-owning component that actually encodes
// text into vectors. It is never shared across goroutines without a mutex;
// the Engine owns exactly one Backend instance at a time.
type Backend interface {
	// EncodeBatch encodes inputs into Dimensions()-length rows. A
	// DeviceTransient *errors.CoreError indicates a recoverable
	// accelerator fault; any other error is treated as a per-item
	// encoding failure.
	EncodeBatch(ctx context.Context, inputs []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	// Reinitialise tears down and reloads the backend, optionally forcing
	// CPU-only execution. Used after exhausting batch-shrink retries.
	Reinitialise(forceCPU bool) error
	Close() error
}

// Tokenizer truncates text to a safe token budget before encoding. The
// default implementation approximates tokens by whitespace/byte count;
// callers may substitute a model-accurate tokenizer without touching the
// batch state machine.
type Tokenizer interface {
	// Truncate returns text truncated to at most maxTokens tokens.
	Truncate(text string, maxTokens int) string
}

// whitespaceTokenizer is the default Tokenizer: a byte-count approximation
// (~4 bytes/token).
type whitespaceTokenizer struct{}

// DefaultTokenizer returns the built-in approximate tokenizer.
func DefaultTokenizer() Tokenizer { return whitespaceTokenizer{} }

func (whitespaceTokenizer) Truncate(text string, maxTokens int) string {
	const bytesPerToken = 4
	limit := maxTokens * bytesPerToken
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit]
}

// Row is one output embedding paired with whether encoding succeeded.
type Row struct {
	Vector  []float32
	Invalid bool
}

// normalizeVector returns an L2-normalised copy of v, or v itself if its
// magnitude is zero.
func normalizeVector(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
