package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hitResultHeader = `
USTRUCT(BlueprintType)
struct FHitResult
{
	UPROPERTY(EditAnywhere)
	float Distance;

	UPROPERTY(EditAnywhere)
	FVector Location;
};
`

// S1: exact struct name match recovers the full body and member list.
func TestExtractDefinition_ExactStructMatch(t *testing.T) {
	sources := []Source{{Path: "HitResult.h", Text: hitResultHeader}}
	results, err := ExtractDefinition(sources, KindStruct, "FHitResult", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].MatchQuality)
	assert.Contains(t, results[0].DefinitionText, "Distance")
	assert.ElementsMatch(t, []string{"float Distance", "FVector Location"}, results[0].Members)
}

// S2: no exact match falls back to fuzzy matching automatically, even when
// fuzzy was not requested.
func TestExtractDefinition_FallsBackToFuzzyWhenNoExactMatch(t *testing.T) {
	sources := []Source{{Path: "HitResult.h", Text: hitResultHeader}}
	results, err := ExtractDefinition(sources, KindStruct, "FHitReslut", false)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "FHitResult", results[0].EntityName)
	assert.Less(t, results[0].MatchQuality, 1.0)
}

// P5: a candidate scoring below 0.60 is excluded even under fuzzy matching.
func TestExtractDefinition_LowScoreCandidatesExcluded(t *testing.T) {
	sources := []Source{{Path: "HitResult.h", Text: hitResultHeader}}
	results, err := ExtractDefinition(sources, KindStruct, "CompletelyUnrelatedName", true)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExtractDefinition_EnumMembers(t *testing.T) {
	text := `
UENUM(BlueprintType)
enum class EMovementMode : uint8
{
	Walking = 0,
	Falling,
	Swimming
};
`
	sources := []Source{{Path: "Movement.h", Text: text}}
	results, err := ExtractDefinition(sources, KindEnum, "EMovementMode", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Walking", "Falling", "Swimming"}, results[0].Members)
}

func TestExtractDefinition_FunctionDeclarationOnly(t *testing.T) {
	text := `
class UMyComponent
{
public:
	void DoWork();
};
`
	sources := []Source{{Path: "MyComponent.h", Text: text}}
	results, err := ExtractDefinition(sources, KindFunction, "DoWork", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, results[0].LineStart, results[0].LineEnd, "a pure declaration has no body, so start==end")
	assert.Empty(t, results[0].DefinitionText)
}

func TestExtractDefinition_FunctionWithBody(t *testing.T) {
	text := `
void ACharacter::TakeDamage(float Amount)
{
	Health -= Amount;
}
`
	sources := []Source{{Path: "Character.cpp", Text: text}}
	results, err := ExtractDefinition(sources, KindFunction, "TakeDamage", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].DefinitionText, "Health -= Amount")
	assert.Greater(t, results[0].LineEnd, results[0].LineStart)
}

func TestScanFile_ReturnsEveryDeclarationRegardlessOfName(t *testing.T) {
	src := Source{Path: "HitResult.h", Text: hitResultHeader}
	results := ScanFile(src)
	require.Len(t, results, 1)
	assert.Equal(t, "FHitResult", results[0].EntityName)
}
