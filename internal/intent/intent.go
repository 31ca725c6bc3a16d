// Package intent classifies a query into {definition, semantic, hybrid}
// and extracts entity candidates, via five deterministic, order-sensitive
// rules. There is no LLM in this path: routing must stay reproducible.
package intent

import (
	"regexp"
	"strings"
)

// QueryType is the classification outcome.
type QueryType string

const (
	TypeDefinition QueryType = "definition"
	TypeSemantic   QueryType = "semantic"
	TypeHybrid     QueryType = "hybrid"
)

// QueryIntent is the router's output.
type QueryIntent struct {
	QueryType      QueryType
	EntityType     string
	EntityName     string
	Confidence     float64
	EnhancedQuery  string
	Reasoning      string
}

var (
	ueIdentifier   = regexp.MustCompile(`\b[FUAIE][A-Z]\w+\b`)
	declKeyword    = regexp.MustCompile(`(?i)\b(struct|class|enum|function)\b`)
	identifierWord = regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9_]*\b`)
)

var stopWords = map[string]bool{
	"the": true, "what": true, "where": true, "find": true,
	"show": true, "how": true, "why": true, "explain": true,
}

// declKeywords excludes the matched keyword itself from candidate
// identifier scanning, so "struct struct Foo" doesn't pick up the
// keyword as its own entity name.
var declKeywords = map[string]bool{"struct": true, "class": true, "enum": true, "function": true}

var hybridHints = []string{"members", "fields", "properties", "methods", "parameters", "signature", "base", "inherit"}
var conceptualHints = []string{"how", "why", "when", "explain", "describe", "compare", "difference", "best practice", "example"}

// knownKinds maps a declaration keyword to the entity_type value it
// produces; "function" has no UE-prefix convention, so it's recognised
// only via the explicit keyword rule, never the bare-entity rule.
var knownKinds = map[string]string{"struct": "struct", "class": "class", "enum": "enum"}

// Analyse classifies query into a QueryIntent, applying the five ordered
// rules and producing an enhanced query for definition/hybrid intents.
func Analyse(query string) QueryIntent {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return QueryIntent{QueryType: TypeSemantic, Confidence: 0, EnhancedQuery: query, Reasoning: "empty query defaults to semantic"}
	}

	lower := strings.ToLower(trimmed)

	// Rule 1: explicit declaration keyword anywhere in the query.
	if loc := declKeyword.FindStringIndex(lower); loc != nil {
		kind := strings.ToLower(trimmed[loc[0]:loc[1]])
		name, etype := adjacentIdentifier(trimmed, loc[1], kind)
		qi := QueryIntent{
			QueryType:  TypeDefinition,
			EntityType: etype,
			EntityName: name,
			Confidence: 0.95,
			Reasoning:  "explicit declaration keyword",
		}
		qi.EnhancedQuery = enhance(trimmed, qi)
		return qi
	}

	ids := ueIdentifier.FindAllString(trimmed, -1)
	uniqueIDs := uniqueStrings(ids)

	// Rule 2: bare entity lookup.
	if len(uniqueIDs) == 1 {
		sig := significantWordCount(trimmed)
		if sig <= 2 {
			if etype, ok := inferKindFromName(uniqueIDs[0]); ok {
				qi := QueryIntent{
					QueryType:  TypeDefinition,
					EntityType: etype,
					EntityName: uniqueIDs[0],
					Confidence: 0.85,
					Reasoning:  "bare entity lookup",
				}
				qi.EnhancedQuery = enhance(trimmed, qi)
				return qi
			}
		}
	}

	// Rule 3: hybrid hint.
	if len(uniqueIDs) >= 1 && containsAny(lower, hybridHints) {
		etype, _ := inferKindFromName(uniqueIDs[0])
		qi := QueryIntent{
			QueryType:  TypeHybrid,
			EntityType: etype,
			EntityName: uniqueIDs[0],
			Confidence: 0.70,
			Reasoning:  "hybrid hint keyword with entity identifier",
		}
		qi.EnhancedQuery = enhance(trimmed, qi)
		return qi
	}

	// Rule 4: conceptual.
	if containsAny(lower, conceptualHints) {
		return QueryIntent{QueryType: TypeSemantic, Confidence: 0.90, EnhancedQuery: trimmed, Reasoning: "conceptual keyword"}
	}

	// Rule 5: default.
	return QueryIntent{QueryType: TypeSemantic, Confidence: 0.50, EnhancedQuery: trimmed, Reasoning: "default semantic"}
}

// adjacentIdentifier finds the identifier adjacent to the matched
// keyword, preferring one immediately following it. Matching is
// case-insensitive (P6): "struct fhitresult" and "STRUCT FHITRESULT" must
// both resolve to an entity name, not just the mixed-case form.
func adjacentIdentifier(query string, from int, kind string) (name, entityType string) {
	if m := firstIdentifierToken(query[from:]); m != "" {
		return m, kind
	}
	if m := lastIdentifierToken(query[:from]); m != "" {
		return m, kind
	}
	return "", kind
}

// firstIdentifierToken returns the first candidate identifier in s.
func firstIdentifierToken(s string) string {
	for _, tok := range identifierWord.FindAllString(s, -1) {
		if isCandidateIdentifier(tok) {
			return tok
		}
	}
	return ""
}

// lastIdentifierToken returns the candidate identifier nearest the end of s.
func lastIdentifierToken(s string) string {
	matches := identifierWord.FindAllString(s, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if isCandidateIdentifier(matches[i]) {
			return matches[i]
		}
	}
	return ""
}

// isCandidateIdentifier excludes stop words, the declaration keywords
// themselves, and anything too short to plausibly be an entity name.
func isCandidateIdentifier(tok string) bool {
	lower := strings.ToLower(tok)
	if stopWords[lower] || declKeywords[lower] {
		return false
	}
	return len(tok) > 2
}

func inferKindFromName(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	switch name[0] {
	case 'F':
		return "struct", true
	case 'U':
		return "class", true
	case 'A':
		return "class", true
	case 'I':
		return "interface", true
	case 'E':
		return "enum", true
	}
	return "", false
}

func significantWordCount(query string) int {
	count := 0
	for _, w := range strings.Fields(query) {
		clean := strings.ToLower(strings.Trim(w, ".,!?;:"))
		if len(clean) > 2 && !stopWords[clean] {
			count++
		}
	}
	return count
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func uniqueStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// enhance appends a kind-tuned suffix for definition/hybrid queries with a
// known entity; semantic queries are left unchanged.
func enhance(query string, qi QueryIntent) string {
	if qi.EntityName == "" {
		return query
	}
	switch qi.EntityType {
	case "struct":
		return query + " struct UPROPERTY fields members"
	case "class":
		return query + " class UCLASS UFUNCTION methods members"
	case "enum":
		return query + " enum UENUM values"
	case "interface":
		return query + " interface methods"
	default:
		return query
	}
}
