// Package engine exposes the library API: open/build/update a store, and
// run query operations against it. Engine is the explicit, constructed-once
// value that owns the model, config, and vector store handle, replacing
// the global state and cyclic references the original design used.
package engine

import (
	"github.com/noahbutcher97/ue5source/internal/discovery"
	"github.com/noahbutcher97/ue5source/internal/extract"
	"github.com/noahbutcher97/ue5source/internal/search"
)

// Sources re-exports discovery.Sources as the build/update input shape.
type Sources = discovery.Sources

// Root re-exports discovery.Root.
type Root = discovery.Root

const (
	OriginEngine  = discovery.OriginEngine
	OriginProject = discovery.OriginProject
)

// ProgressEvent is one suspension-point notification.
type ProgressEvent struct {
	Stage     string // "discovery", "chunk", "embed"
	Completed int
}

// ProgressSink receives progress notifications; nil is a valid no-op sink.
type ProgressSink func(ProgressEvent)

func (p ProgressSink) emit(stage string, completed int) {
	if p != nil {
		p(ProgressEvent{Stage: stage, Completed: completed})
	}
}

// Stats summarises one build or incremental-update run.
type Stats struct {
	Discovery      discovery.Stats
	FilesProcessed int
	ChunksProduced int
	ChunksEmbedded int
	ChunksReused   int
	RowsPruned     int
	Errors         []string
}

// DefinitionResult re-exports extract.DefinitionResult for callers that
// only import pkg/engine.
type DefinitionResult = extract.DefinitionResult

// SemanticResult re-exports search.SemanticResult.
type SemanticResult = search.SemanticResult

// Filters re-exports search.Filters.
type Filters = search.Filters
