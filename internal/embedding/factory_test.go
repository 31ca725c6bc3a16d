package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahbutcher97/ue5source/internal/config"
	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

func factoryTestConfig() config.Config {
	cfg := config.Default()
	cfg.EmbeddingDim = 8
	return cfg
}

// use_accelerator=off always selects the CPU backend, never touching the
// native bridge at all.
func TestNewBackendForConfig_Off_ReturnsStaticBackend(t *testing.T) {
	cfg := factoryTestConfig()
	cfg.UseAccelerator = "off"
	cfg.AcceleratorLibraryPath = "/nonexistent/libembed.so"

	b, err := NewBackendForConfig(cfg)
	require.NoError(t, err)
	_, ok := b.(*StaticBackend)
	assert.True(t, ok, "off must select the static CPU backend")
}

// use_accelerator=auto with no library path configured never probes purego
// and just returns the CPU backend.
func TestNewBackendForConfig_AutoWithoutLibraryPath_ReturnsStaticBackend(t *testing.T) {
	cfg := factoryTestConfig()
	cfg.UseAccelerator = "auto"
	cfg.AcceleratorLibraryPath = ""

	b, err := NewBackendForConfig(cfg)
	require.NoError(t, err)
	_, ok := b.(*StaticBackend)
	assert.True(t, ok)
}

// use_accelerator=auto with an unloadable library falls back to the CPU
// backend instead of returning an error — this is the whole point of auto.
func TestNewBackendForConfig_AutoWithUnloadableLibrary_FallsBackSilently(t *testing.T) {
	cfg := factoryTestConfig()
	cfg.UseAccelerator = "auto"
	cfg.AcceleratorLibraryPath = "/nonexistent/libembed.so"

	b, err := NewBackendForConfig(cfg)
	require.NoError(t, err)
	_, ok := b.(*StaticBackend)
	assert.True(t, ok, "auto must degrade to the static backend rather than propagate the load error")
}

// use_accelerator=on with no library path configured is a config error,
// not a silent CPU fallback: an explicit selection must fail loudly.
func TestNewBackendForConfig_OnWithoutLibraryPath_IsDeviceFatal(t *testing.T) {
	cfg := factoryTestConfig()
	cfg.UseAccelerator = "on"
	cfg.AcceleratorLibraryPath = ""

	_, err := NewBackendForConfig(cfg)
	require.Error(t, err)
	assert.True(t, coreerrors.Is(err, coreerrors.KindDeviceFatal))
}

// use_accelerator=on with an unloadable library also fails fatally instead
// of masquerading as a working accelerator.
func TestNewBackendForConfig_OnWithUnloadableLibrary_IsDeviceFatal(t *testing.T) {
	cfg := factoryTestConfig()
	cfg.UseAccelerator = "on"
	cfg.AcceleratorLibraryPath = "/nonexistent/libembed.so"

	_, err := NewBackendForConfig(cfg)
	require.Error(t, err)
	assert.True(t, coreerrors.Is(err, coreerrors.KindDeviceFatal))
}

// An invalid use_accelerator value is a config error. Config.Validate()
// would normally catch this earlier, but the factory must not silently
// treat an unrecognised mode as "off".
func TestNewBackendForConfig_UnknownMode_IsConfigError(t *testing.T) {
	cfg := factoryTestConfig()
	cfg.UseAccelerator = "maybe"

	_, err := NewBackendForConfig(cfg)
	require.Error(t, err)
	assert.True(t, coreerrors.Is(err, coreerrors.KindConfig))
}
