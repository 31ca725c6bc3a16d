package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
	"github.com/noahbutcher97/ue5source/internal/config"
)

// fakeBackend lets tests script a sequence of per-call errors, counting
// calls and recording the batch sizes it was asked to encode.
type fakeBackend struct {
	dim         int
	errs        []error // consumed one per EncodeBatch call; nil once exhausted
	cpuOnly     bool
	batchSizes  []int
	reinitCalls int
}

func (f *fakeBackend) Dimensions() int   { return f.dim }
func (f *fakeBackend) ModelName() string { return "fake" }
func (f *fakeBackend) Close() error      { return nil }

func (f *fakeBackend) Reinitialise(forceCPU bool) error {
	f.reinitCalls++
	f.cpuOnly = forceCPU
	return nil
}

func (f *fakeBackend) EncodeBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	f.batchSizes = append(f.batchSizes, len(inputs))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		row := make([]float32, f.dim)
		row[0] = 1
		out[i] = row
	}
	return out, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.InitialBatchSize = 4
	cfg.MinBatchSize = 1
	cfg.MaxBatchShrinks = 4
	cfg.MaxTokens = 512
	cfg.TokenSafetyBuffer = 10
	return cfg
}

func TestEncodeAll_HappyPath(t *testing.T) {
	backend := &fakeBackend{dim: 4}
	eng := New(backend, nil, testConfig())
	rows, err := eng.EncodeAll(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.False(t, r.Invalid)
	}
}

// P4: a device-transient error shrinks the batch before falling back to CPU.
func TestEncodeAll_ShrinksBatchOnDeviceTransientError(t *testing.T) {
	backend := &fakeBackend{
		dim: 4,
		errs: []error{
			coreerrors.New(coreerrors.KindDeviceTransient, "cuda oom"),
			nil,
		},
	}
	eng := New(backend, nil, testConfig())
	rows, err := eng.EncodeAll(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.GreaterOrEqual(t, len(backend.batchSizes), 2)
	assert.Less(t, backend.batchSizes[1], backend.batchSizes[0], "second attempt should use a smaller batch")
}

// P4: exhausting shrink attempts falls back to CPU reinitialisation.
func TestEncodeAll_FallsBackToCPUAfterExhaustingShrinks(t *testing.T) {
	cfg := testConfig()
	cfg.InitialBatchSize = 2
	cfg.MinBatchSize = 1
	cfg.MaxBatchShrinks = 1
	transient := coreerrors.New(coreerrors.KindDeviceTransient, "gpu device error")
	backend := &fakeBackend{
		dim:  4,
		errs: []error{transient, transient, nil},
	}
	eng := New(backend, nil, cfg)
	rows, err := eng.EncodeAll(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, backend.reinitCalls)
	assert.True(t, backend.cpuOnly)
}

// P4: a non-transient error degrades to per-item encoding, marking only
// the items that still fail as invalid.
func TestEncodeAll_NonTransientErrorFallsBackPerItem(t *testing.T) {
	backend := &fakeBackend{dim: 4}
	eng := New(backend, nil, testConfig())

	callCount := 0
	wrapped := &scriptedBackend{
		fakeBackend: backend,
		onCall: func(inputs []string) ([][]float32, error, bool) {
			callCount++
			if callCount == 1 {
				return nil, assertErr, true
			}
			return nil, nil, false
		},
	}
	eng.backend = wrapped
	rows, err := eng.EncodeAll(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

var assertErr = coreerrors.New(coreerrors.KindIO, "malformed input")

// scriptedBackend lets a single test override EncodeBatch behavior for its
// first call then delegate to the wrapped fakeBackend afterward.
type scriptedBackend struct {
	*fakeBackend
	onCall func(inputs []string) ([][]float32, error, bool)
}

func (s *scriptedBackend) EncodeBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if out, err, handled := s.onCall(inputs); handled {
		return out, err
	}
	return s.fakeBackend.EncodeBatch(ctx, inputs)
}

func TestEncodeAll_EmptyInputReturnsEmpty(t *testing.T) {
	backend := &fakeBackend{dim: 4}
	eng := New(backend, nil, testConfig())
	rows, err := eng.EncodeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNormalizeVector_ZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	assert.Equal(t, v, normalizeVector(v))
}

func TestNormalizeVector_UnitLength(t *testing.T) {
	v := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 1.0, float64(v[0]*v[0]+v[1]*v[1]), 1e-5)
}

func TestDefaultTokenizer_TruncatesLongText(t *testing.T) {
	tok := DefaultTokenizer()
	long := make([]byte, 10000)
	for i := range long {
		long[i] = 'x'
	}
	out := tok.Truncate(string(long), 100)
	assert.LessOrEqual(t, len(out), 400)
}
