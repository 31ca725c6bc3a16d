package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// S1: explicit declaration keyword routes to definition, case-insensitively.
func TestAnalyse_ExplicitKeyword_RoutesToDefinition(t *testing.T) {
	qi := Analyse("show me the struct FHitResult")
	assert.Equal(t, TypeDefinition, qi.QueryType)
	assert.Equal(t, "struct", qi.EntityType)
	assert.Equal(t, "FHitResult", qi.EntityName)

	qi2 := Analyse("SHOW ME THE STRUCT FHitResult")
	assert.Equal(t, TypeDefinition, qi2.QueryType, "classification must be casing-stable")
}

// S2: a bare UE-prefixed identifier with no other significant words is a
// definition lookup.
func TestAnalyse_BareEntity_RoutesToDefinition(t *testing.T) {
	qi := Analyse("UGameplayStatics")
	assert.Equal(t, TypeDefinition, qi.QueryType)
	assert.Equal(t, "class", qi.EntityType)
	assert.Equal(t, "UGameplayStatics", qi.EntityName)
}

// S3: a hybrid hint keyword alongside an entity routes to hybrid.
func TestAnalyse_HybridHint_RoutesToHybrid(t *testing.T) {
	qi := Analyse("what are the members of FHitResult")
	assert.Equal(t, TypeHybrid, qi.QueryType)
	assert.Equal(t, "FHitResult", qi.EntityName)
}

// S4: a conceptual keyword with no entity stays semantic.
func TestAnalyse_ConceptualKeyword_RoutesToSemantic(t *testing.T) {
	qi := Analyse("explain how line traces work")
	assert.Equal(t, TypeSemantic, qi.QueryType)
}

// S5: anything else falls back to semantic with low confidence.
func TestAnalyse_Default_RoutesToSemantic(t *testing.T) {
	qi := Analyse("character movement replication network")
	assert.Equal(t, TypeSemantic, qi.QueryType)
	assert.Equal(t, 0.50, qi.Confidence)
}

func TestAnalyse_EmptyQuery_DefaultsToSemantic(t *testing.T) {
	qi := Analyse("   ")
	assert.Equal(t, TypeSemantic, qi.QueryType)
	assert.Equal(t, 0.0, qi.Confidence)
}

// classification is deterministic across repeated calls.
func TestAnalyse_IsDeterministic(t *testing.T) {
	first := Analyse("struct FHitResult members")
	for i := 0; i < 10; i++ {
		again := Analyse("struct FHitResult members")
		assert.Equal(t, first, again)
	}
}

// P6: intent stability under casing — spec.md §8's own example queries
// must all classify as definition with the same entity name once cased
// the same way; a purely-lowercase query must not lose the entity.
func TestAnalyse_P6_IntentStableUnderCasing(t *testing.T) {
	lower := Analyse("struct fhitresult")
	upper := Analyse("STRUCT FHITRESULT")
	mixed := Analyse("Struct FHitResult")

	assert.Equal(t, TypeDefinition, lower.QueryType)
	assert.Equal(t, TypeDefinition, upper.QueryType)
	assert.Equal(t, TypeDefinition, mixed.QueryType)

	assert.NotEmpty(t, lower.EntityName, "an all-lowercase query must still resolve an entity name")
	assert.Equal(t, strings.ToUpper(lower.EntityName), strings.ToUpper(upper.EntityName))
	assert.Equal(t, strings.ToUpper(lower.EntityName), strings.ToUpper(mixed.EntityName))
}

func TestAnalyse_EnhancesDefinitionQueries(t *testing.T) {
	qi := Analyse("struct FHitResult")
	assert.Contains(t, qi.EnhancedQuery, "UPROPERTY")
}
