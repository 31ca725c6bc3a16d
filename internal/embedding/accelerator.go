package embedding

import (
	"context"
	"fmt"

	"github.com/ebitengine/purego"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// AcceleratorBackend bridges to a native embedding shared library (a
// CUDA/Metal-backed encoder) via purego, avoiding cgo. The library must
// export the C function embed_encode_batch. When
// the library cannot be loaded, NewAcceleratorBackend returns an error so
// the caller can fall back to a CPU-only backend instead of silently
// degrading.
type AcceleratorBackend struct {
	libPath   string
	dim       int
	modelName string
	handle    uintptr
	cpuOnly   bool
	embedFn   func(inputs []string) ([][]float32, error)

	// cpuFallback is the backend EncodeBatch switches to once cpuOnly is
	// set (see Reinitialise). Set by NewBackendForConfig; nil when this
	// backend was constructed directly without a CPU path armed.
	cpuFallback Backend
}

// NewAcceleratorBackend loads libPath and initialises the native encoder
// for modelName at the given dimension. Returns a *errors.CoreError with
// KindDeviceFatal if the library cannot be loaded at all (as opposed to a
// transient per-batch failure, which surfaces later from EncodeBatch).
func NewAcceleratorBackend(libPath, modelName string, dim int) (*AcceleratorBackend, error) {
	handle, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindDeviceFatal, "load accelerator library", err)
	}
	b := &AcceleratorBackend{libPath: libPath, dim: dim, modelName: modelName, handle: handle}
	b.bind()
	return b, nil
}

// nativeEncodeBatch is the C ABI this backend expects:
//
//	int embed_encode_batch(const char** inputs, int32_t count, float* out, int32_t dim)
//
// returning 0 on success and a negative errno-like code that the engine's
// substring classifier can match against device-transient wording via the
// wrapping error message produced below.
type nativeEncodeBatch func(inputs []string, count int32, out []float32, dim int32) int32

func (b *AcceleratorBackend) bind() {
	var fn nativeEncodeBatch
	purego.RegisterLibFunc(&fn, b.handle, "embed_encode_batch")
	b.embedFn = func(inputs []string) ([][]float32, error) {
		flat := make([]float32, len(inputs)*b.dim)
		if rc := fn(inputs, int32(len(inputs)), flat, int32(b.dim)); rc != 0 {
			return nil, fmt.Errorf("accelerator device error: embed_encode_batch returned %d", rc)
		}
		out := make([][]float32, len(inputs))
		for i := range inputs {
			out[i] = flat[i*b.dim : (i+1)*b.dim]
		}
		return out, nil
	}
}

func (b *AcceleratorBackend) Dimensions() int   { return b.dim }
func (b *AcceleratorBackend) ModelName() string { return b.modelName }

// EncodeBatch calls into the native encoder, or into cpuFallback once
// Reinitialise(true) has marked this backend cpuOnly — the native handle
// is closed at that point, so continuing to call through embedFn would
// invoke a function pointer into an unloaded shared library. Errors from
// the native path are returned unwrapped so the engine's substring
// classifier (isDeviceTransient) can recognise them; this backend never
// classifies errors itself, keeping that policy centralised in the Engine
// per the component boundary.
func (b *AcceleratorBackend) EncodeBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if b.cpuOnly {
		if b.cpuFallback == nil {
			return nil, coreerrors.New(coreerrors.KindDeviceFatal, "accelerator is CPU-only but no CPU backend was configured")
		}
		return b.cpuFallback.EncodeBatch(ctx, inputs)
	}
	if b.embedFn == nil {
		return nil, coreerrors.New(coreerrors.KindDeviceFatal, "accelerator backend not bound to a native embed function")
	}
	return b.embedFn(inputs)
}

// Reinitialise tears down the current handle and reloads it. When
// forceCPU is true it does not reopen the accelerator library at all and
// marks the backend cpuOnly, so subsequent EncodeBatch calls route to
// cpuFallback instead of the now-closed native handle.
func (b *AcceleratorBackend) Reinitialise(forceCPU bool) error {
	if b.handle != 0 {
		_ = purego.Dlclose(b.handle)
		b.handle = 0
	}
	if forceCPU {
		b.cpuOnly = true
		return nil
	}
	handle, err := purego.Dlopen(b.libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("reinit accelerator: %w", err)
	}
	b.handle = handle
	b.bind()
	b.cpuOnly = false
	return nil
}

func (b *AcceleratorBackend) Close() error {
	if b.handle == 0 {
		return nil
	}
	err := purego.Dlclose(b.handle)
	b.handle = 0
	return err
}
