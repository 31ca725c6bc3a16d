package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: short file produces exactly one chunk.
func TestSplit_ShortText_ReturnsOneSpan(t *testing.T) {
	text := "struct FFoo { int32 Bar; };"
	spans := Split(text, DefaultOptions())
	require.Len(t, spans, 1)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, len(text), spans[0].End)
}

// P2: consecutive spans overlap by roughly opts.Overlap characters.
func TestSplit_LongText_ProducesOverlappingSpans(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("void DoSomething_")
		b.WriteString(strings.Repeat("x", 30))
		b.WriteString("() {\n  return;\n}\n\n")
	}
	text := b.String()
	opts := Options{ChunkSize: 500, Overlap: 100, StructureAware: true}
	spans := Split(text, opts)
	require.Greater(t, len(spans), 1)
	for i := 1; i < len(spans); i++ {
		assert.Less(t, spans[i].Start, spans[i-1].End, "span %d should overlap the previous one", i)
		assert.Greater(t, spans[i].Start, spans[i-1].Start, "spans must make forward progress")
	}
	assert.Equal(t, len(text), spans[len(spans)-1].End)
}

// P2: structure-aware splitting prefers a hard boundary (a class/struct
// declaration) over a mid-declaration cut when one falls within range.
func TestSplit_StructureAware_PrefersHardBoundary(t *testing.T) {
	text := strings.Repeat("// filler line padding out the source\n", 40) +
		"class AMyActor : public AActor\n{\npublic:\n\tvoid Tick();\n};\n" +
		strings.Repeat("// more filler to push past the chunk size target\n", 40)
	opts := Options{ChunkSize: len(text) / 2, Overlap: 0, StructureAware: true}
	spans := Split(text, opts)
	require.NotEmpty(t, spans)
	boundary := strings.Index(text, "class AMyActor")
	found := false
	for _, sp := range spans {
		if sp.Start == boundary {
			found = true
		}
	}
	assert.True(t, found, "expected a span to start exactly at the class declaration")
}

// P2: the hard-boundary search also recognises the opening brace of a
// top-level function definition (the fourth hard-boundary category),
// preferring it over a more distant closing brace, even when the
// signature and `{` sit on separate lines.
func TestFindHardBoundary_PrefersTopLevelFunctionBrace(t *testing.T) {
	text := "// filler comment line\n" +
		"void AMyActor::Tick(float DeltaTime)\n{\n\tDoWork();\n}\n" +
		strings.Repeat("y", 40)
	sigIdx := strings.Index(text, "void AMyActor::Tick")
	require.Greater(t, sigIdx, 0)

	pos, ok := findHardBoundary(text, 0, sigIdx+3)
	require.True(t, ok)
	assert.Equal(t, sigIdx, pos)
}

// A forward declaration (ending in `;`, never `{`) must not be treated as
// a hard boundary by the function-brace pattern.
func TestHardBoundaryPatterns_ForwardDeclarationDoesNotMatch(t *testing.T) {
	line := "void AMyActor::Tick(float DeltaTime);\n"
	for _, re := range hardBoundaryPatterns {
		assert.False(t, re.MatchString(line), "forward declaration must not match pattern %v", re)
	}
}

func TestContentHash_StableForSameBytes(t *testing.T) {
	a := ContentHash([]byte("hello world"))
	b := ContentHash([]byte("hello world"))
	c := ContentHash([]byte("hello world!"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestBuildChunks_PopulatesPositionalMetadata(t *testing.T) {
	text := strings.Repeat("a", 10)
	chunks := BuildChunks("Foo.h", text, "deadbeef", OriginProject, Options{ChunkSize: 4, Overlap: 1, StructureAware: false})
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, "Foo.h", c.Path)
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, len(chunks), c.TotalChunks)
		assert.Equal(t, "deadbeef", c.ContentHash)
		assert.Equal(t, OriginProject, c.Origin)
		assert.Equal(t, text[c.CharStart:c.CharEnd], c.Text)
	}
}

func TestIsHeaderAndImplementationExt(t *testing.T) {
	assert.True(t, IsHeaderExt(".h"))
	assert.True(t, IsHeaderExt(".HPP"))
	assert.False(t, IsHeaderExt(".cpp"))
	assert.True(t, IsImplementationExt(".cpp"))
	assert.False(t, IsImplementationExt(".h"))
}
