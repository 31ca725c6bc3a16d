package engine

import (
	"context"
	"os"

	"github.com/noahbutcher97/ue5source/internal/config"
	"github.com/noahbutcher97/ue5source/internal/discovery"
	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
	"github.com/noahbutcher97/ue5source/internal/store"
)

// BuildStore performs a full rebuild: discover sources, chunk, enrich,
// embed, and persist a brand new store generation at e's directory. A
// prior generation (if any) remains readable until the atomic rename
// completes.
func (e *Engine) BuildStore(ctx context.Context, cfg config.Config, sources Sources, progress ProgressSink) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}

	lock, err := store.AcquireWriteLock(e.dir)
	if err != nil {
		return Stats{}, err
	}
	defer lock.Release()

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	var stats Stats
	files, dstats, err := discovery.Discover(ctx, cfg, sources, false, func(n int) { progress.emit("discovery", n) })
	stats.Discovery = dstats
	if err != nil {
		return stats, err
	}

	vectors, records, cacheOut, err := e.indexFiles(ctx, cfg, files, nil, &stats, progress)
	if err != nil {
		return stats, err
	}

	if err := store.Build(e.dir, cfg.EmbedModelName, vectors, records); err != nil {
		return stats, err
	}
	if err := store.SaveCache(cachePath(e.dir), cacheOut); err != nil {
		return stats, err
	}

	vs, err := store.Open(e.dir, cfg.EmbeddingDim)
	if err != nil {
		return stats, err
	}
	e.mu.Lock()
	if e.vstore != nil {
		e.vstore.Close()
	}
	e.vstore = vs
	e.mu.Unlock()

	return stats, nil
}

// IncrementalUpdate re-discovers sources and reuses vector rows for files
// whose content hash and chunk count are unchanged, re-embedding only
// what changed. Stale rows for files no longer discovered are kept unless
// cfg.PruneMissingOnIncremental is set.
func (e *Engine) IncrementalUpdate(ctx context.Context, sources Sources, progress ProgressSink) (Stats, error) {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	lock, err := store.AcquireWriteLock(e.dir)
	if err != nil {
		return Stats{}, err
	}
	defer lock.Release()

	cache, err := store.LoadCache(cachePath(e.dir))
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	files, dstats, err := discovery.Discover(ctx, cfg, sources, len(cache) > 0, func(n int) { progress.emit("discovery", n) })
	stats.Discovery = dstats
	if err != nil {
		return stats, err
	}

	var prior *store.VectorStore
	e.mu.RLock()
	prior = e.vstore
	e.mu.RUnlock()

	vectors, records, cacheOut, err := e.indexFiles(ctx, cfg, files, &reuseSource{cache: cache, prior: prior}, &stats, progress)
	if err != nil {
		return stats, err
	}

	if cfg.PruneMissingOnIncremental {
		discovered := map[string]bool{}
		for _, f := range files {
			discovered[f.Path] = true
		}
		vectors, records, stats.RowsPruned = prune(vectors, records, discovered)
	}

	if err := store.Build(e.dir, cfg.EmbedModelName, vectors, records); err != nil {
		return stats, err
	}
	if err := store.SaveCache(cachePath(e.dir), cacheOut); err != nil {
		return stats, err
	}

	vs, err := store.Open(e.dir, cfg.EmbeddingDim)
	if err != nil {
		return stats, err
	}
	e.mu.Lock()
	if e.vstore != nil {
		e.vstore.Close()
	}
	e.vstore = vs
	e.mu.Unlock()

	return stats, nil
}

// Compact removes metadata rows (and their embeddings) for files that no
// longer exist on disk, satisfying the explicit-compact half of the
// pruning open question without making it a side effect of every
// incremental update.
func (e *Engine) Compact(ctx context.Context) (Stats, error) {
	e.mu.RLock()
	vs, cfg := e.vstore, e.cfg
	e.mu.RUnlock()
	if vs == nil {
		return Stats{}, coreerrors.New(coreerrors.KindIO, "no store open")
	}

	lock, err := store.AcquireWriteLock(e.dir)
	if err != nil {
		return Stats{}, err
	}
	defer lock.Release()

	records := vs.Records()
	vectors := make([][]float32, len(records))
	for i := range records {
		vectors[i] = vs.Vector(i)
	}

	present := map[string]bool{}
	var stats Stats
	newVectors, newRecords, pruned := prune(vectors, records, presentOnDisk(records, present))
	stats.RowsPruned = pruned

	if err := store.Build(e.dir, cfg.EmbedModelName, newVectors, newRecords); err != nil {
		return stats, err
	}
	newVS, err := store.Open(e.dir, cfg.EmbeddingDim)
	if err != nil {
		return stats, err
	}
	e.mu.Lock()
	e.vstore.Close()
	e.vstore = newVS
	e.mu.Unlock()
	return stats, nil
}

func presentOnDisk(records []store.Record, scratch map[string]bool) map[string]bool {
	for _, r := range records {
		if _, ok := scratch[r.Path]; ok {
			continue
		}
		if _, err := os.Stat(r.Path); err == nil {
			scratch[r.Path] = true
		}
	}
	return scratch
}

func prune(vectors [][]float32, records []store.Record, keep map[string]bool) ([][]float32, []store.Record, int) {
	var outV [][]float32
	var outR []store.Record
	pruned := 0
	for i, r := range records {
		if keep[r.Path] {
			outV = append(outV, vectors[i])
			outR = append(outR, r)
		} else {
			pruned++
		}
	}
	return outV, outR, pruned
}

func cachePath(dir string) string {
	return dir + string(os.PathSeparator) + store.CacheFileName
}
