package hybrid

import (
	"context"
	"strings"
	"time"

	"github.com/noahbutcher97/ue5source/internal/embedding"
	"github.com/noahbutcher97/ue5source/internal/extract"
	"github.com/noahbutcher97/ue5source/internal/intent"
	"github.com/noahbutcher97/ue5source/internal/search"
	"github.com/noahbutcher97/ue5source/internal/store"
)

// ReadSource returns the current on-disk text for path, used to feed the
// definition extractor; the store keeps only offsets, never the text
// itself.
type ReadSource func(path string) (string, error)

// Engine orchestrates the query side: it owns a FilteredSearch (via the
// store and rule weights) and an embedding.Engine, composed one
// directionally with no back-reference from search into hybrid.
type Engine struct {
	Store      *store.VectorStore
	Embedder   *embedding.Engine
	Weights    search.RuleWeights
	ReadSource ReadSource
}

// Query runs the full intent -> {extract, search} -> merge pipeline. If
// deadline is non-zero and expires before the search step completes, the
// response is returned with Partial=true and whatever results had been
// gathered so far.
func (e *Engine) Query(ctx context.Context, question string, topK int, scope Scope, filters search.Filters, deadline time.Time) QueryResponse {
	resp := QueryResponse{Question: question}
	total := time.Now()
	defer func() { resp.Timing.TotalMs = since(total) }()

	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	t := time.Now()
	qi := intent.Analyse(question)
	resp.Timing.IntentAnalysisMs = since(t)
	resp.Intent = qi

	if ctx.Err() != nil {
		resp.Partial = true
		resp.Errors = append(resp.Errors, "cancelled before definition step")
		return resp
	}

	if (qi.QueryType == intent.TypeDefinition || qi.QueryType == intent.TypeHybrid) && qi.EntityName != "" {
		t = time.Now()
		defs, err := e.extractDefinitions(qi)
		resp.Timing.DefinitionMs = since(t)
		if err != nil {
			resp.Errors = append(resp.Errors, err.Error())
		} else {
			resp.DefinitionResults = defs
		}
	}

	if ctx.Err() != nil {
		resp.Partial = true
		resp.Errors = append(resp.Errors, "cancelled before search step")
		return resp
	}

	if qi.QueryType == intent.TypeSemantic || qi.QueryType == intent.TypeHybrid {
		t = time.Now()
		vec, err := e.embedQuery(ctx, qi.EnhancedQuery)
		resp.Timing.EmbedMs = since(t)
		if err != nil {
			resp.Errors = append(resp.Errors, err.Error())
		} else {
			sf := filters
			sf.TargetEntity = qi.EntityName
			applyScope(&sf, scope)

			t = time.Now()
			sem, err := search.Search(ctx, e.Store, vec, sf, qi.QueryType, e.Weights, topK+5)
			resp.Timing.SearchMs = since(t)
			if err != nil {
				resp.Errors = append(resp.Errors, err.Error())
				if ctx.Err() != nil {
					resp.Partial = true
				}
			} else {
				resp.SemanticResults = sem
			}
		}
	}

	resp.CombinedResults = merge(resp.DefinitionResults, resp.SemanticResults, topK)
	resp.TotalResults = len(resp.CombinedResults)
	return resp
}

func applyScope(f *search.Filters, scope Scope) {
	switch scope {
	case ScopeEngine:
		f.Origin = "engine"
	case ScopeProject:
		f.Origin = "project"
	case ScopeAll, "":
		f.Origin = ""
	}
}

// extractDefinitions reads every indexed file's current text and runs the
// definition extractor, collecting up to 5 results.
func (e *Engine) extractDefinitions(qi intent.QueryIntent) ([]extract.DefinitionResult, error) {
	paths := uniquePaths(e.Store)
	sources := make([]extract.Source, 0, len(paths))
	for _, p := range paths {
		text, err := e.ReadSource(p)
		if err != nil {
			continue // one unreadable file never fails the overall query
		}
		sources = append(sources, extract.Source{Path: p, Text: text})
	}
	kind := extract.Kind(qi.EntityType)
	if kind == "" {
		kind = extract.KindStruct
	}
	results, err := extract.ExtractDefinition(sources, kind, qi.EntityName, true)
	if err != nil {
		return nil, err
	}
	if len(results) > 5 {
		results = results[:5]
	}
	return results, nil
}

func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	rows, err := e.Embedder.EncodeAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return make([]float32, e.Embedder.Dimensions()), nil
	}
	return rows[0].Vector, nil
}

func uniquePaths(vs *store.VectorStore) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range vs.Records() {
		if !seen[r.Path] {
			seen[r.Path] = true
			out = append(out, r.Path)
		}
	}
	return out
}

// merge places definition results first (in their match-quality order),
// then appends semantic results, skipping any whose (path, chunk_range)
// overlaps a definition's (file_path, [line_start,line_end]). The merged
// list is trimmed to topK total.
func merge(defs []extract.DefinitionResult, sems []search.SemanticResult, topK int) []CombinedResult {
	var out []CombinedResult
	for i := range defs {
		out = append(out, CombinedResult{Type: ResultDefinition, Definition: &defs[i]})
	}
	for i := range sems {
		if overlapsAnyDefinition(sems[i], defs) {
			continue
		}
		out = append(out, CombinedResult{Type: ResultSemantic, Semantic: &sems[i]})
	}
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// overlapsAnyDefinition approximates the (path, chunk_range) vs
// (file_path, [line_start,line_end]) overlap check using path identity
// alone, since SemanticResult carries chunk_index rather
// than a line range; a semantic result is treated as overlapping when it
// names the same file as a definition result, which is the conservative
// choice the dedup rule is meant to produce (never surface a chunk that
// merely restates a definition already returned in full).
func overlapsAnyDefinition(sem search.SemanticResult, defs []extract.DefinitionResult) bool {
	for _, d := range defs {
		if samePath(sem.Path, d.FilePath) {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
