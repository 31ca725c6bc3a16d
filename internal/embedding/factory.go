package embedding

import (
	"strings"

	"github.com/noahbutcher97/ue5source/internal/config"
	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// NewBackendForConfig selects a Backend per cfg.UseAccelerator ("auto",
// "on", or "off"), the core's own accelerator/CPU-fallback selection
// logic rather than something pushed onto the caller. An explicit
// selection ("on") never silently falls back: a load failure is reported
// as DeviceFatal instead of masquerading as a working accelerator. "auto"
// probes the library and falls back to the CPU backend on any failure.
func NewBackendForConfig(cfg config.Config) (Backend, error) {
	cpu := NewStaticBackend(cfg.EmbeddingDim)

	mode := strings.ToLower(strings.TrimSpace(cfg.UseAccelerator))
	switch mode {
	case "", "off":
		return cpu, nil
	case "on":
		if cfg.AcceleratorLibraryPath == "" {
			return nil, coreerrors.New(coreerrors.KindDeviceFatal, "use_accelerator=on requires accelerator_library_path")
		}
		acc, err := newAcceleratorWithCPUFallback(cfg, cpu)
		if err != nil {
			return nil, err
		}
		return acc, nil
	case "auto":
		if cfg.AcceleratorLibraryPath == "" {
			return cpu, nil
		}
		acc, err := newAcceleratorWithCPUFallback(cfg, cpu)
		if err != nil {
			cfg.Log().Warn("accelerator unavailable, falling back to CPU backend", "err", err)
			return cpu, nil
		}
		return acc, nil
	default:
		return nil, coreerrors.New(coreerrors.KindConfig, "use_accelerator must be one of auto, on, off")
	}
}

// newAcceleratorWithCPUFallback loads the accelerator backend and arms it
// with cpu as the genuine CPU path EncodeBatch switches to once Reinitialise
// marks the backend cpuOnly, instead of continuing to call through the
// now-unloaded native handle.
func newAcceleratorWithCPUFallback(cfg config.Config, cpu Backend) (*AcceleratorBackend, error) {
	acc, err := NewAcceleratorBackend(cfg.AcceleratorLibraryPath, cfg.EmbedModelName, cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}
	acc.cpuFallback = cpu
	return acc, nil
}
