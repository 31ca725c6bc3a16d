// Package search implements pre-filtered cosine similarity search over a
// vector store plus the rule-based multiplicative rerank engine.
package search

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/noahbutcher97/ue5source/internal/intent"
	"github.com/noahbutcher97/ue5source/internal/store"
)

// Filters is the pre-filter predicate set, ANDed together, plus the
// caller-provided hints that gate the optional rule-engine boosts.
type Filters struct {
	Entity     string
	EntityType string
	HasUProperty, HasUClass, HasUFunction, HasUStruct, HasUEnum bool
	Origin     string // "" means any
	FileType   string // "", "header", "implementation"

	// TargetEntity drives rules R1, R4, and R6 (file-path match, entity
	// co-occurrence penalty, caller-provided entity boost).
	TargetEntity string
	EntityBoost  bool // enable R6
	MacroBoost   bool // enable R7
}

// SemanticResult is one scored, filtered row.
type SemanticResult struct {
	Path        string
	ChunkIndex  int
	TotalChunks int
	Score       float64
	Origin      string
	Entities    []string
	EntityType  string
}

// RuleWeights holds the seven multiplicative rule strengths, defaulting to
// a tuned reproduction baseline; overridable via LoadRuleWeights.
type RuleWeights struct {
	FilePathMatch      float64
	HeaderPriority     float64
	ImplPenalty        float64
	CoOccurrencePenalty float64
	RichChunkBonus     float64
	EntityBoost        float64
	MacroBoost         float64
}

// DefaultRuleWeights returns the empirically tuned rule multipliers.
func DefaultRuleWeights() RuleWeights {
	return RuleWeights{
		FilePathMatch:       3.0,
		HeaderPriority:      2.5,
		ImplPenalty:         0.5,
		CoOccurrencePenalty: 0.1,
		RichChunkBonus:      1.3,
		EntityBoost:         1.2,
		MacroBoost:          1.15,
	}
}

func matchesFilters(r store.Record, f Filters) bool {
	if f.Entity != "" && !containsString(r.Entities, f.Entity) {
		return false
	}
	if f.EntityType != "" && !containsString(r.EntityTypes, f.EntityType) {
		return false
	}
	if f.HasUProperty && !r.HasUProperty {
		return false
	}
	if f.HasUClass && !r.HasUClass {
		return false
	}
	if f.HasUFunction && !r.HasUFunction {
		return false
	}
	if f.HasUStruct && !r.HasUStruct {
		return false
	}
	if f.HasUEnum && !r.HasUEnum {
		return false
	}
	if f.Origin != "" && r.Origin != f.Origin {
		return false
	}
	switch f.FileType {
	case "header":
		if !r.IsHeader {
			return false
		}
	case "implementation":
		if !r.IsImplementation {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Search scores every row surviving the pre-filter against queryVector
// (assumed L2-normalised), applies the rule engine, and returns the top_k
// results descending by boosted score, ties broken by lower chunk_index
// then path. top_k=0 returns an empty, valid result with no error.
func Search(ctx context.Context, vs *store.VectorStore, queryVector []float32, filters Filters, qt intent.QueryType, weights RuleWeights, topK int) ([]SemanticResult, error) {
	if topK <= 0 {
		return []SemanticResult{}, nil
	}

	n := vs.Len()
	type scored struct {
		idx   int
		score float64
	}
	results := make([]scored, n)
	valid := make([]bool, n)

	const workers = 8
	chunkSize := (n + workers - 1) / workers
	if chunkSize < 1 {
		chunkSize = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunkSize {
		start := start
		end := start + chunkSize
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				rec := vs.Record(i)
				if rec.Invalid || !matchesFilters(rec, filters) {
					continue
				}
				score := dot(queryVector, vs.Vector(i))
				score = applyRules(score, rec, filters, qt, weights)
				results[i] = scored{idx: i, score: score}
				valid[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var kept []scored
	for i, ok := range valid {
		if ok {
			kept = append(kept, results[i])
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		ri, rj := vs.Record(kept[i].idx), vs.Record(kept[j].idx)
		if ri.ChunkIndex != rj.ChunkIndex {
			return ri.ChunkIndex < rj.ChunkIndex
		}
		return ri.Path < rj.Path
	})

	if len(kept) > topK {
		kept = kept[:topK]
	}

	out := make([]SemanticResult, len(kept))
	for i, k := range kept {
		rec := vs.Record(k.idx)
		etype := ""
		if len(rec.EntityTypes) > 0 {
			etype = rec.EntityTypes[0]
		}
		out[i] = SemanticResult{
			Path:        rec.Path,
			ChunkIndex:  int(rec.ChunkIndex),
			TotalChunks: int(rec.TotalChunks),
			Score:       k.score,
			Origin:      rec.Origin,
			Entities:    rec.Entities,
			EntityType:  etype,
		}
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// applyRules composes the seven multiplicative rules, all independent and
// commutative.
func applyRules(score float64, rec store.Record, f Filters, qt intent.QueryType, w RuleWeights) float64 {
	if f.TargetEntity != "" {
		stem := strings.TrimSuffix(filepath.Base(rec.Path), filepath.Ext(rec.Path))
		if strings.Contains(stem, f.TargetEntity) {
			score *= w.FilePathMatch // R1
		}
	}
	if qt == intent.TypeDefinition {
		if rec.IsHeader {
			score *= w.HeaderPriority // R2
		}
		if rec.IsImplementation {
			score *= w.ImplPenalty // R3
		}
	}
	if f.TargetEntity != "" {
		if containsString(rec.Entities, f.TargetEntity) {
			if f.EntityBoost {
				score *= w.EntityBoost // R6
			}
		} else {
			score *= w.CoOccurrencePenalty // R4
		}
	}
	if len(rec.Entities) > 3 {
		score *= w.RichChunkBonus // R5
	}
	if f.MacroBoost {
		if rec.HasUProperty || rec.HasUClass || rec.HasUFunction || rec.HasUStruct || rec.HasUEnum {
			score *= w.MacroBoost // R7
		}
	}
	return score
}
