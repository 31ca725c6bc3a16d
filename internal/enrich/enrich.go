// Package enrich tags chunks with detected entity names, entity kinds,
// UE reflection macro flags, and file-role metadata, immediately after
// chunking. Enrichment is additive: an unenriched chunk degrades search
// quality gracefully rather than failing.
package enrich

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/noahbutcher97/ue5source/internal/chunk"
)

var (
	ueIdentifier = regexp.MustCompile(`\b[FUAIE][A-Z][A-Za-z0-9_]*\b`)
	typeDecl     = regexp.MustCompile(`\b(struct|class|enum(?:\s+class)?)\s+(\w+)`)
	delegateDecl = regexp.MustCompile(`\bDECLARE_\w*DELEGATE\w*\s*\(\s*(\w+)`)
	funcDecl     = regexp.MustCompile(`\b\w[\w:<>,\s\*&]*\s+(\w+)\s*\([^;{]*\)\s*(?:const)?\s*\{`)

	hasUProperty = regexp.MustCompile(`\bUPROPERTY\s*\(`)
	hasUClass    = regexp.MustCompile(`\bUCLASS\s*\(`)
	hasUFunction = regexp.MustCompile(`\bUFUNCTION\s*\(`)
	hasUStruct   = regexp.MustCompile(`\bUSTRUCT\s*\(`)
	hasUEnum     = regexp.MustCompile(`\bUENUM\s*\(`)
)

// Enrich tags c in place with detected entities, entity types, macro
// flags, and file role, using ext (with leading dot) to derive header vs
// implementation.
func Enrich(c *chunk.Chunk, ext string) {
	text := c.Text

	entitySet := map[string]bool{}
	for _, m := range ueIdentifier.FindAllString(text, -1) {
		entitySet[m] = true
	}

	typeSet := map[string]bool{}
	for _, m := range typeDecl.FindAllStringSubmatch(text, -1) {
		entitySet[m[2]] = true
		typeSet[kindFromKeyword(m[1])] = true
	}
	for _, m := range delegateDecl.FindAllStringSubmatch(text, -1) {
		entitySet[m[1]] = true
		typeSet["delegate"] = true
	}
	if funcDecl.MatchString(text) {
		typeSet["function"] = true
	}

	c.Entities = sortedKeys(entitySet)
	c.EntityTypes = sortedKeys(typeSet)

	c.HasUProperty = hasUProperty.MatchString(text)
	c.HasUClass = hasUClass.MatchString(text)
	c.HasUFunction = hasUFunction.MatchString(text)
	c.HasUStruct = hasUStruct.MatchString(text)
	c.HasUEnum = hasUEnum.MatchString(text)

	c.IsHeader = chunk.IsHeaderExt(ext)
	c.IsImplementation = chunk.IsImplementationExt(ext)
}

// EnrichFile enriches every chunk produced from one file, deriving ext
// from path once.
func EnrichFile(chunks []chunk.Chunk) {
	if len(chunks) == 0 {
		return
	}
	ext := filepath.Ext(chunks[0].Path)
	for i := range chunks {
		Enrich(&chunks[i], ext)
	}
}

func kindFromKeyword(kw string) string {
	switch {
	case strings.HasPrefix(kw, "enum"):
		return "enum"
	case kw == "class":
		return "class"
	case kw == "struct":
		return "struct"
	default:
		return kw
	}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
