package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndOpenVectorsFile_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")
	vectors := [][]float32{
		{0.1, 0.2, 0.3},
		{0.4, 0.5, 0.6},
	}
	digest := [32]byte{1, 2, 3}

	require.NoError(t, WriteVectorsFile(path, 3, "unixcoder", digest, vectors))

	mv, err := OpenVectorsMmap(path)
	require.NoError(t, err)
	defer mv.Close()

	assert.Equal(t, StoreVersion, mv.Header.Version)
	assert.Equal(t, 2, mv.Header.Rows)
	assert.Equal(t, 3, mv.Header.Dim)
	assert.Equal(t, "unixcoder", mv.Header.ModelName)
	assert.Equal(t, digest, mv.Header.ModelDigest)

	for i, want := range vectors {
		got := mv.Row(i)
		require.Len(t, got, 3)
		for j := range want {
			assert.InDelta(t, want[j], got[j], 1e-6)
		}
	}
}

func TestOpenVectorsMmap_MissingFile(t *testing.T) {
	_, err := OpenVectorsMmap(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}

func TestOpenVectorsMmap_RejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	require.NoError(t, WriteVectorsFile(path, 1, "m", [32]byte{}, [][]float32{{1.0}}))

	// Corrupt the magic bytes directly.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] = 'X'
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = OpenVectorsMmap(path)
	assert.Error(t, err)
}
