package engine

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/noahbutcher97/ue5source/internal/config"
	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
	"github.com/noahbutcher97/ue5source/internal/embedding"
	"github.com/noahbutcher97/ue5source/internal/extract"
	"github.com/noahbutcher97/ue5source/internal/hybrid"
	"github.com/noahbutcher97/ue5source/internal/intent"
	"github.com/noahbutcher97/ue5source/internal/search"
	"github.com/noahbutcher97/ue5source/internal/store"
)

// Engine is the single construct-once-inject-everywhere value that owns
// the config, the embedding backend, and (once opened or built) the
// vector store.
type Engine struct {
	mu      sync.RWMutex
	cfg     config.Config
	dir     string
	backend embedding.Backend
	embed   *embedding.Engine
	vstore  *store.VectorStore
	weights search.RuleWeights
}

// New constructs an Engine bound to dir, without loading or building a
// store yet. If backend is nil, one is selected automatically via
// embedding.NewBackendForConfig(cfg), which honours cfg.UseAccelerator's
// auto/on/off selection — the core picks the backend per config, rather
// than requiring every caller to construct one. Pass a non-nil backend to
// override that selection (tests do this with a deterministic backend).
// Call BuildStore to create a store, or Open to load an existing
// generation from the same directory.
func New(dir string, cfg config.Config, backend embedding.Backend) (*Engine, error) {
	if backend == nil {
		b, err := embedding.NewBackendForConfig(cfg)
		if err != nil {
			return nil, err
		}
		backend = b
	}
	return &Engine{
		dir:     dir,
		cfg:     cfg,
		backend: backend,
		embed:   embedding.New(backend, nil, cfg),
		weights: search.DefaultRuleWeights(),
	}, nil
}

// WithRuleWeights overrides the default rule-engine multipliers.
func (e *Engine) WithRuleWeights(w search.RuleWeights) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = w
	return e
}

// Open loads an existing store generation at path. Returns Corrupt,
// NotFound, or DimMismatch as classified by store.Open, or whatever
// backend-selection error New returns if backend is nil and selection
// fails (e.g. use_accelerator=on with no library reachable).
func Open(path string, cfg config.Config, backend embedding.Backend) (*Engine, error) {
	vs, err := store.Open(path, cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}
	e, err := New(path, cfg, backend)
	if err != nil {
		vs.Close()
		return nil, err
	}
	e.vstore = vs
	return e, nil
}

// Close releases the backend and any open store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.vstore != nil {
		err = e.vstore.Close()
	}
	if cerr := e.backend.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// AnalyseQuery classifies text into a QueryIntent; this never touches the
// store and has no suspension points.
func (e *Engine) AnalyseQuery(text string) intent.QueryIntent {
	return intent.Analyse(text)
}

// ExtractDefinition scans every currently indexed file's on-disk text for
// declarations matching kind/name, per the definition extractor contract.
func (e *Engine) ExtractDefinition(ctx context.Context, kind extract.Kind, name string, fuzzy bool) ([]extract.DefinitionResult, error) {
	e.mu.RLock()
	vs := e.vstore
	e.mu.RUnlock()
	if vs == nil {
		return nil, coreerrors.New(coreerrors.KindIO, "no store open")
	}
	sources := readSourcesForStore(vs)
	return extract.ExtractDefinition(sources, kind, name, fuzzy)
}

// SemanticSearch runs filtered cosine search directly, bypassing the
// intent router; query_type is treated as semantic for rule purposes.
func (e *Engine) SemanticSearch(ctx context.Context, vector []float32, filters search.Filters, topK int) ([]search.SemanticResult, error) {
	e.mu.RLock()
	vs, w := e.vstore, e.weights
	e.mu.RUnlock()
	if vs == nil {
		return nil, coreerrors.New(coreerrors.KindIO, "no store open")
	}
	return search.Search(ctx, vs, vector, filters, intent.TypeSemantic, w, topK)
}

// HybridQuery runs the full orchestrated pipeline.
func (e *Engine) HybridQuery(ctx context.Context, text string, topK int, scope hybrid.Scope, filters search.Filters, deadline time.Time) (hybrid.QueryResponse, error) {
	e.mu.RLock()
	vs, w := e.vstore, e.weights
	e.mu.RUnlock()
	if vs == nil {
		return hybrid.QueryResponse{}, coreerrors.New(coreerrors.KindIO, "no store open")
	}
	he := &hybrid.Engine{
		Store:      vs,
		Embedder:   e.embed,
		Weights:    w,
		ReadSource: readFile,
	}
	return he.Query(ctx, text, topK, scope, filters, deadline), nil
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readSourcesForStore(vs *store.VectorStore) []extract.Source {
	seen := map[string]bool{}
	var sources []extract.Source
	for _, r := range vs.Records() {
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		text, err := readFile(r.Path)
		if err != nil {
			continue
		}
		sources = append(sources, extract.Source{Path: r.Path, Text: text})
	}
	return sources
}
