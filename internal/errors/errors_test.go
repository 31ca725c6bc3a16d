package errors

import (
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SetsKindAndMessage(t *testing.T) {
	err := New(KindConfig, "bad config")
	assert.Equal(t, KindConfig, err.Kind)
	assert.Contains(t, err.Error(), "bad config")
	assert.Contains(t, err.Error(), "Config")
}

func TestWrap_PreservesCauseForUnwrap(t *testing.T) {
	cause := goerrors.New("disk full")
	err := Wrap(KindIO, "write failed", cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWithDetail_AppendsToMessage(t *testing.T) {
	err := New(KindCorrupt, "bad header").WithDetail("row count mismatch")
	assert.Contains(t, err.Error(), "row count mismatch")
}

func TestIs_MatchesOuterKindNotWrappedCauseKind(t *testing.T) {
	inner := New(KindDeviceTransient, "cuda oom")
	wrapped := Wrap(KindDeviceFatal, "retries exhausted", inner)
	assert.True(t, Is(wrapped, KindDeviceFatal))
	assert.False(t, Is(wrapped, KindDeviceTransient), "Is checks the outer error's own kind, not the wrapped cause's")
}

func TestKindOf_ReturnsEmptyForNonCoreError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(goerrors.New("plain")))
}

func TestCategory_GroupsKindsAsDocumented(t *testing.T) {
	cases := map[Kind]Category{
		KindConfig:         CategoryConfig,
		KindIO:             CategoryIO,
		KindEmptyDiscovery: CategoryIO,
		KindDeviceTransient: CategoryDevice,
		KindCorrupt:        CategoryValidation,
		KindCancelled:      CategoryInternal,
	}
	for kind, want := range cases {
		err := New(kind, "x")
		assert.Equal(t, want, err.Category(), "kind %s", kind)
	}
}

func TestRetryable_OnlyTransientKindsAreRetryable(t *testing.T) {
	require.True(t, New(KindDeviceTransient, "x").Retryable())
	require.True(t, New(KindIO, "x").Retryable())
	require.False(t, New(KindDeviceFatal, "x").Retryable())
	require.False(t, New(KindConfig, "x").Retryable())
}
