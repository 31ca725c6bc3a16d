package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Options parameterises the chunker.
type Options struct {
	ChunkSize      int
	Overlap        int
	StructureAware bool
}

// DefaultOptions returns the default chunking parameters.
func DefaultOptions() Options {
	return Options{ChunkSize: 2000, Overlap: 200, StructureAware: true}
}

// hardBoundaryPatterns are line-start regexes that make good split points:
// type/namespace declarations, UE reflection macros, closing braces at
// column 0, and the opening brace of a top-level function definition.
// Matched against the start of a line.
var hardBoundaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*(class|struct|enum(?:\s+class)?|namespace)\s+\w`),
	regexp.MustCompile(`(?m)^\s*(UCLASS|USTRUCT|UENUM|UFUNCTION|UPROPERTY|UINTERFACE|UDELEGATE)\s*\(`),
	regexp.MustCompile(`(?m)^}`),
	// A top-level function definition's open brace: a column-0 signature
	// line ending in `)` (optionally `const`/`override`/`noexcept`),
	// followed by `{` either on the same line or the next. The parameter
	// list and brace-prefix both exclude `;`, so a forward declaration
	// (which ends in `;`, never `{`) never matches.
	regexp.MustCompile(`(?m)^[A-Za-z_][\w:<>,\*&~\s]*\([^;{}]*\)\s*(const\s*)?(override\s*)?(noexcept\s*)?(\r?\n[ \t]*)?\{`),
}

var blockCommentOpen = regexp.MustCompile(`/\*`)
var blockCommentClose = regexp.MustCompile(`\*/`)

// Span is a half-open byte-offset range [Start, End) into the original text.
type Span struct {
	Start, End int
}

// Split produces an ordered list of (start, end) offset pairs covering
// text, preferring hard boundaries, then soft boundaries, then a fixed
// character fallback, with overlap between consecutive chunks.
func Split(text string, opts Options) []Span {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 2000
	}
	n := len(text)
	if n == 0 {
		return nil
	}
	var spans []Span
	start := 0
	for start < n {
		target := start + opts.ChunkSize
		if target >= n {
			spans = append(spans, Span{start, n})
			break
		}
		end := target
		if opts.StructureAware {
			if b, ok := findHardBoundary(text, start, target); ok {
				end = b
			} else if b, ok := findSoftBoundary(text, start, target); ok {
				end = b
			}
		}
		if end <= start {
			end = target
		}
		if insideBlockComment(text, start, end) {
			if b := blockCommentClose.FindStringIndex(text[end:]); b != nil {
				end += b[1]
			}
		}
		if end > n {
			end = n
		}
		spans = append(spans, Span{start, end})
		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// findHardBoundary returns the hard-boundary line start closest to target
// among those after searchStart and before target+200.
func findHardBoundary(text string, searchStart, target int) (int, bool) {
	window := text[searchStart:min(len(text), target+200)]
	best := -1
	for _, re := range hardBoundaryPatterns {
		locs := re.FindAllStringIndex(window, -1)
		for _, loc := range locs {
			abs := searchStart + loc[0]
			if abs <= searchStart {
				continue
			}
			if best == -1 || absDelta(abs, target) < absDelta(best, target) {
				best = abs
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// findSoftBoundary prefers a blank line, then sentence end, then any line
// break, searching backward from target toward searchStart.
func findSoftBoundary(text string, searchStart, target int) (int, bool) {
	if target > len(text) {
		target = len(text)
	}
	window := text[searchStart:target]
	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return searchStart + i + 2, true
	}
	if i := strings.LastIndexAny(window, ".!?"); i >= 0 && i+1 < len(window) && window[i+1] == '\n' {
		return searchStart + i + 2, true
	}
	if i := strings.LastIndex(window, "\n"); i >= 0 {
		return searchStart + i + 1, true
	}
	return 0, false
}

func insideBlockComment(text string, start, end int) bool {
	opens := blockCommentOpen.FindAllStringIndex(text[start:end], -1)
	closes := blockCommentClose.FindAllStringIndex(text[start:end], -1)
	return len(opens) > len(closes)
}

func absDelta(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ContentHash returns the hex-encoded SHA-256 of content, used both as the
// Chunk.ContentHash and as the incremental reuse cache key.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// BuildChunks splits text and assembles the resulting Chunk values, with
// Path/ContentHash/Origin filled in and Text populated for immediate use
// by downstream enrichment and embedding.
func BuildChunks(path, text string, contentHash string, origin Origin, opts Options) []Chunk {
	spans := Split(text, opts)
	chunks := make([]Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = Chunk{
			Path:        path,
			ChunkIndex:  i,
			TotalChunks: len(spans),
			CharStart:   sp.Start,
			CharEnd:     sp.End,
			Text:        text[sp.Start:sp.End],
			ContentHash: contentHash,
			Origin:      origin,
		}
	}
	return chunks
}

// IsHeaderExt reports whether ext (with leading dot) is a header extension.
func IsHeaderExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".h", ".hpp", ".inl":
		return true
	}
	return false
}

// IsImplementationExt reports whether ext (with leading dot) is an
// implementation-file extension.
func IsImplementationExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".cpp", ".c", ".cc":
		return true
	}
	return false
}
