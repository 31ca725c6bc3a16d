package embedding

import (
	"context"
	"log/slog"
	"strings"

	"github.com/noahbutcher97/ue5source/internal/config"
	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// deviceTransientTokens are substrings that classify a backend error as
// recoverable accelerator trouble, per the embedding engine's contract.
var deviceTransientTokens = []string{"cuda", "device", "gpu"}

func isDeviceTransient(err error) bool {
	if err == nil {
		return false
	}
	if coreerrors.Is(err, coreerrors.KindDeviceTransient) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, tok := range deviceTransientTokens {
		if strings.Contains(msg, tok) {
			return true
		}
	}
	return false
}

// Engine owns the active Backend and runs the adaptive batching and
// accelerator-fallback state machine described in the embedding engine
// component. It is single-threaded from the caller's perspective: only one
// EncodeAll call may be in flight at a time.
type Engine struct {
	backend   Backend
	tokenizer Tokenizer
	cfg       config.Config
	log       *slog.Logger

	// RetryLog records one entry per shrink/CPU-handoff attempt, exposed
	// for tests asserting the accelerator-fallback retry count (S6).
	RetryLog []string
}

// New constructs an Engine around backend, using cfg's batching and token
// parameters. tokenizer may be nil to use the default approximation.
func New(backend Backend, tokenizer Tokenizer, cfg config.Config) *Engine {
	if tokenizer == nil {
		tokenizer = DefaultTokenizer()
	}
	return &Engine{backend: backend, tokenizer: tokenizer, cfg: cfg, log: cfg.Log()}
}

func (e *Engine) Dimensions() int   { return e.backend.Dimensions() }
func (e *Engine) ModelName() string { return e.backend.ModelName() }
func (e *Engine) Close() error      { return e.backend.Close() }

// EncodeAll encodes every input, batch by batch, applying the adaptive
// shrink-then-CPU-fallback state machine on accelerator errors and
// per-item fallback on other errors. The context is checked only between
// batches, matching the engine's suspension-point contract.
func (e *Engine) EncodeAll(ctx context.Context, inputs []string) ([]Row, error) {
	maxTokens := e.cfg.MaxTokens - e.cfg.TokenSafetyBuffer
	if maxTokens < 1 {
		maxTokens = 1
	}
	prepped := make([]string, len(inputs))
	for i, s := range inputs {
		prepped[i] = e.tokenizer.Truncate(s, maxTokens)
	}

	rows := make([]Row, 0, len(prepped))
	batchSize := e.cfg.InitialBatchSize
	if batchSize < 1 {
		batchSize = 16
	}
	cpuOnly := false

	for cursor := 0; cursor < len(prepped); {
		select {
		case <-ctx.Done():
			return rows, coreerrors.New(coreerrors.KindCancelled, "embedding cancelled")
		default:
		}

		end := cursor + batchSize
		if end > len(prepped) {
			end = len(prepped)
		}
		batch := prepped[cursor:end]

		encoded, err := e.encodeWithShrink(ctx, batch, &batchSize, &cpuOnly)
		if err != nil {
			// Non-transient (or CPU-fallback-exhausted) failure: degrade
			// to one-item-at-a-time encoding for this batch.
			encoded = e.encodeItemByItem(ctx, batch)
		}
		rows = append(rows, encoded...)
		cursor = end
	}
	return rows, nil
}

// encodeWithShrink runs the accelerator shrink loop for one batch. On
// success it returns normalised rows for every item in batch and may have
// reduced *batchSize for subsequent batches (nothing requires
// restoring batch size after a shrink, so the reduction persists, matching
// a conservative posture after any failure). On exhaustion it
// reinitialises the backend on CPU and retries once more before giving up.
func (e *Engine) encodeWithShrink(ctx context.Context, batch []string, batchSize *int, cpuOnly *bool) ([]Row, error) {
	size := len(batch)
	shrinks := 0
	for {
		rows, err := e.encodeInChunksOf(ctx, batch, size)
		if err == nil {
			return rows, nil
		}
		if !isDeviceTransient(err) {
			return nil, err
		}
		e.RetryLog = append(e.RetryLog, "shrink")
		e.log.Warn("device transient error, shrinking batch", "size", size, "attempt", shrinks+1, "err", err)
		if shrinks >= e.cfg.MaxBatchShrinks || size <= e.cfg.MinBatchSize {
			break
		}
		shrinks++
		size = size / 2
		if size < e.cfg.MinBatchSize {
			size = e.cfg.MinBatchSize
		}
		*batchSize = size
	}
	if *cpuOnly {
		return nil, coreerrors.New(coreerrors.KindDeviceFatal, "accelerator retries exhausted, already on CPU")
	}
	e.RetryLog = append(e.RetryLog, "cpu-fallback")
	if err := e.backend.Reinitialise(true); err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindDeviceFatal, "CPU reinit failed", err)
	}
	*cpuOnly = true
	rows, err := e.encodeInChunksOf(ctx, batch, len(batch))
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindDeviceFatal, "CPU fallback encode failed", err)
	}
	return rows, nil
}

// encodeInChunksOf walks batch in sub-batches of size (the currently
// accepted accelerator batch size), returning the first encode error
// encountered without partial results: a mid-batch failure must still look
// like "this batch size failed" to the shrink loop above, not a partial
// success.
func (e *Engine) encodeInChunksOf(ctx context.Context, batch []string, size int) ([]Row, error) {
	if size <= 0 || size > len(batch) {
		size = len(batch)
	}
	rows := make([]Row, 0, len(batch))
	for i := 0; i < len(batch); i += size {
		end := i + size
		if end > len(batch) {
			end = len(batch)
		}
		out, err := e.backend.EncodeBatch(ctx, batch[i:end])
		if err != nil {
			return nil, err
		}
		rows = append(rows, toRows(out)...)
	}
	return rows, nil
}

// encodeItemByItem encodes batch one string at a time; items that still
// fail get a zero vector and are marked invalid (ItemEncodingFailed).
func (e *Engine) encodeItemByItem(ctx context.Context, batch []string) []Row {
	rows := make([]Row, len(batch))
	for i, item := range batch {
		out, err := e.backend.EncodeBatch(ctx, []string{item})
		if err != nil || len(out) != 1 {
			e.log.Warn("item encoding failed", "err", err)
			rows[i] = Row{Vector: make([]float32, e.backend.Dimensions()), Invalid: true}
			continue
		}
		rows[i] = Row{Vector: normalizeVector(out[0])}
	}
	return rows
}

func toRows(vectors [][]float32) []Row {
	rows := make([]Row, len(vectors))
	for i, v := range vectors {
		rows[i] = Row{Vector: normalizeVector(v)}
	}
	return rows
}
