package engine

import (
	"context"
	"os"

	"github.com/noahbutcher97/ue5source/internal/chunk"
	"github.com/noahbutcher97/ue5source/internal/config"
	"github.com/noahbutcher97/ue5source/internal/discovery"
	"github.com/noahbutcher97/ue5source/internal/enrich"
	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
	"github.com/noahbutcher97/ue5source/internal/store"
)

// reuseSource carries the prior generation's cache and store, consulted by
// indexFiles to decide whether a file's rows can be copied forward
// without re-embedding.
type reuseSource struct {
	cache store.Cache
	prior *store.VectorStore
}

// indexFiles chunks, enriches, and embeds every discovered file not
// eligible for reuse, copying forward rows for unchanged files when reuse
// is non-nil. It returns the assembled vectors/records in final row order
// plus the cache to persist for the next run.
func (e *Engine) indexFiles(ctx context.Context, cfg config.Config, files []discovery.File, reuse *reuseSource, stats *Stats, progress ProgressSink) ([][]float32, []store.Record, store.Cache, error) {
	var vectors [][]float32
	var records []store.Record
	newCache := store.Cache{}
	processed := 0

	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, nil, nil, coreerrors.New(coreerrors.KindCancelled, "indexing cancelled")
		default:
		}

		data, err := os.ReadFile(f.Path)
		if err != nil {
			stats.Errors = append(stats.Errors, err.Error())
			continue
		}
		hash := chunk.ContentHash(data)

		if reuse != nil {
			if entry, ok := reuse.cache[f.Path]; ok && entry.ContentHash == hash && reuse.prior != nil &&
				len(chunk.Split(string(data), chunk.Options{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap, StructureAware: cfg.UseStructureAwareChunking})) == entry.ChunkCount {
				reused := copyRows(reuse.prior, entry)
				if reused != nil {
					newCache[f.Path] = store.CacheEntry{ContentHash: hash, ChunkCount: entry.ChunkCount, FirstGlobalIndex: len(records)}
					for _, rv := range reused {
						vectors = append(vectors, rv.vec)
						records = append(records, rv.rec)
					}
					stats.ChunksReused += len(reused)
					processed++
					progress.emit("embed", processed)
					continue
				}
			}
		}

		text := string(data)
		origin := chunk.OriginProject
		if f.Origin == discovery.OriginEngine {
			origin = chunk.OriginEngine
		}
		opts := chunk.Options{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap, StructureAware: cfg.UseStructureAwareChunking}
		chunks := chunk.BuildChunks(f.Path, text, hash, origin, opts)
		enrich.EnrichFile(chunks)
		stats.ChunksProduced += len(chunks)

		if len(chunks) == 0 {
			newCache[f.Path] = store.CacheEntry{ContentHash: hash, ChunkCount: 0, FirstGlobalIndex: len(records)}
			stats.FilesProcessed++
			processed++
			progress.emit("chunk", processed)
			continue
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		rows, err := e.embed.EncodeAll(ctx, texts)
		if err != nil {
			return nil, nil, nil, err
		}
		stats.ChunksEmbedded += len(rows)

		firstIndex := len(records)
		for i, c := range chunks {
			rec := store.Record{
				Path:             c.Path,
				ChunkIndex:       uint32(c.ChunkIndex),
				TotalChunks:      uint32(c.TotalChunks),
				CharStart:        uint64(c.CharStart),
				CharEnd:          uint64(c.CharEnd),
				ContentHash:      c.ContentHash,
				Origin:           string(c.Origin),
				Entities:         c.Entities,
				EntityTypes:      c.EntityTypes,
				HasUProperty:     c.HasUProperty,
				HasUClass:        c.HasUClass,
				HasUFunction:     c.HasUFunction,
				HasUStruct:       c.HasUStruct,
				HasUEnum:         c.HasUEnum,
				IsHeader:         c.IsHeader,
				IsImplementation: c.IsImplementation,
				Invalid:          i < len(rows) && rows[i].Invalid,
			}
			vec := make([]float32, cfg.EmbeddingDim)
			if i < len(rows) {
				vec = rows[i].Vector
			}
			vectors = append(vectors, vec)
			records = append(records, rec)
		}
		newCache[f.Path] = store.CacheEntry{ContentHash: hash, ChunkCount: len(chunks), FirstGlobalIndex: firstIndex}
		stats.FilesProcessed++
		processed++
		progress.emit("embed", processed)
	}

	return vectors, records, newCache, nil
}

type reusedRow struct {
	vec []float32
	rec store.Record
}

// copyRows copies entry.ChunkCount rows starting at
// entry.FirstGlobalIndex from the prior store, or nil if the prior store
// no longer has that many rows (cache stale beyond repair for this file).
func copyRows(prior *store.VectorStore, entry store.CacheEntry) []reusedRow {
	if entry.FirstGlobalIndex+entry.ChunkCount > prior.Len() {
		return nil
	}
	out := make([]reusedRow, entry.ChunkCount)
	for i := 0; i < entry.ChunkCount; i++ {
		idx := entry.FirstGlobalIndex + i
		out[i] = reusedRow{vec: prior.Vector(idx), rec: prior.Record(idx)}
	}
	return out
}
