package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahbutcher97/ue5source/internal/config"
	"github.com/noahbutcher97/ue5source/internal/embedding"
	"github.com/noahbutcher97/ue5source/internal/extract"
	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

const sampleHeader = `
struct FHitResult
{
	UPROPERTY()
	float Distance;
	FVector Location;
};
`

func testCfg() config.Config {
	cfg := config.Default()
	cfg.EmbeddingDim = 8
	cfg.InitialBatchSize = 4
	cfg.MinBatchSize = 1
	return cfg
}

func newTestEngine(t *testing.T, storeDir string, cfg config.Config) *Engine {
	t.Helper()
	eng, err := New(storeDir, cfg, embedding.NewStaticBackend(cfg.EmbeddingDim))
	require.NoError(t, err)
	return eng
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// End-to-end: BuildStore discovers a header, chunks/enriches/embeds it,
// persists a store, and leaves it open for querying.
func TestBuildStore_IndexesFilesAndOpensStore(t *testing.T) {
	srcDir := t.TempDir()
	writeSource(t, srcDir, "FHitResult.h", sampleHeader)

	storeDir := t.TempDir()
	cfg := testCfg()
	eng := newTestEngine(t, storeDir, cfg)
	defer eng.Close()

	sources := Sources{Roots: []Root{{Path: srcDir, Origin: OriginProject}}}
	stats, err := eng.BuildStore(context.Background(), cfg, sources, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Greater(t, stats.ChunksProduced, 0)
	assert.Equal(t, stats.ChunksProduced, stats.ChunksEmbedded)

	results, err := eng.ExtractDefinition(context.Background(), extract.KindStruct, "FHitResult", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "FHitResult", results[0].EntityName)
}

// Incremental update on an unchanged file reuses its rows instead of
// re-embedding, and re-embeds a genuinely changed file.
func TestIncrementalUpdate_ReusesUnchangedAndReembedsChanged(t *testing.T) {
	srcDir := t.TempDir()
	writeSource(t, srcDir, "FHitResult.h", sampleHeader)
	writeSource(t, srcDir, "FOther.h", "struct FOther { int X; };\n")

	storeDir := t.TempDir()
	cfg := testCfg()
	eng := newTestEngine(t, storeDir, cfg)
	defer eng.Close()

	sources := Sources{Roots: []Root{{Path: srcDir, Origin: OriginProject}}}
	_, err := eng.BuildStore(context.Background(), cfg, sources, nil)
	require.NoError(t, err)

	// Mutate one file, leave the other untouched.
	writeSource(t, srcDir, "FOther.h", "struct FOther { int X; int Y; };\n")

	stats, err := eng.IncrementalUpdate(context.Background(), sources, nil)
	require.NoError(t, err)
	assert.Greater(t, stats.ChunksReused, 0, "FHitResult.h's rows should have been reused")
	assert.Greater(t, stats.ChunksEmbedded, 0, "FOther.h's rows should have been re-embedded")
}

func TestCompact_PrunesRecordsForDeletedFiles(t *testing.T) {
	srcDir := t.TempDir()
	deletedPath := writeSource(t, srcDir, "FGone.h", "struct FGone { int X; };\n")
	writeSource(t, srcDir, "FStay.h", "struct FStay { int Y; };\n")

	storeDir := t.TempDir()
	cfg := testCfg()
	eng := newTestEngine(t, storeDir, cfg)
	defer eng.Close()

	sources := Sources{Roots: []Root{{Path: srcDir, Origin: OriginProject}}}
	_, err := eng.BuildStore(context.Background(), cfg, sources, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(deletedPath))

	stats, err := eng.Compact(context.Background())
	require.NoError(t, err)
	assert.Greater(t, stats.RowsPruned, 0)
}

func TestOpen_MissingStoreIsError(t *testing.T) {
	_, err := Open(t.TempDir(), testCfg(), embedding.NewStaticBackend(8))
	assert.Error(t, err)
}

func TestSemanticSearch_NoStoreOpenIsError(t *testing.T) {
	eng := newTestEngine(t, t.TempDir(), testCfg())
	defer eng.backend.Close()
	_, err := eng.SemanticSearch(context.Background(), make([]float32, 8), Filters{}, 5)
	require.Error(t, err)
	assert.True(t, coreerrors.Is(err, coreerrors.KindIO))
}

func TestHybridQuery_NoStoreOpenIsError(t *testing.T) {
	eng := newTestEngine(t, t.TempDir(), testCfg())
	defer eng.backend.Close()
	_, err := eng.HybridQuery(context.Background(), "FHitResult", 5, "", Filters{}, time.Time{})
	require.Error(t, err)
}

func TestAnalyseQuery_RoutesBareEntityToDefinition(t *testing.T) {
	eng := newTestEngine(t, t.TempDir(), testCfg())
	defer eng.backend.Close()
	qi := eng.AnalyseQuery("FHitResult")
	assert.Equal(t, "struct", qi.EntityType)
}
