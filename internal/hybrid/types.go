// Package hybrid orchestrates the intent router, definition extractor, and
// filtered search into the unified query contract: intent -> {extract,
// search} -> merge/dedup -> top-k.
package hybrid

import (
	"time"

	"github.com/noahbutcher97/ue5source/internal/extract"
	"github.com/noahbutcher97/ue5source/internal/intent"
	"github.com/noahbutcher97/ue5source/internal/search"
)

// Scope restricts semantic search to a subset of indexed origins.
type Scope string

const (
	ScopeEngine  Scope = "engine"
	ScopeProject Scope = "project"
	ScopeAll     Scope = "all"
)

// ResultType tags a CombinedResult's payload.
type ResultType string

const (
	ResultDefinition ResultType = "definition"
	ResultSemantic   ResultType = "semantic"
)

// CombinedResult is the merged, deduplicated, tagged-variant result unit.
type CombinedResult struct {
	Type       ResultType
	Definition *extract.DefinitionResult
	Semantic   *search.SemanticResult
}

// Timing records per-step wall-clock duration in milliseconds.
type Timing struct {
	IntentAnalysisMs int64
	DefinitionMs     int64
	EmbedMs          int64
	SearchMs         int64
	TotalMs          int64
}

// QueryResponse is the hybrid engine's stable request/response contract.
type QueryResponse struct {
	Question          string
	Intent            intent.QueryIntent
	DefinitionResults []extract.DefinitionResult
	SemanticResults   []search.SemanticResult
	CombinedResults   []CombinedResult
	Timing            Timing
	Partial           bool
	Errors            []string
	TotalResults      int
}

func since(start time.Time) int64 { return time.Since(start).Milliseconds() }
