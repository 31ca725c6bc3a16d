package extract

import (
	"regexp"
	"sort"
	"strings"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

var (
	structClassDecl = regexp.MustCompile(`(?m)^[ \t]*(?:template\s*<[^>]*>\s*)?(struct|class)\s+(?:\w+_API\s+)?(?:alignas\([^)]*\)\s*)?(\w+)\b`)
	enumDecl        = regexp.MustCompile(`(?m)^[ \t]*(enum(?:\s+class)?)\s+(?:\w+_API\s+)?(\w+)\b`)
	functionDecl    = regexp.MustCompile(`(?m)^[ \t]*[\w:<>,\*&~\s]+?\b(\w+)\s*\([^;{]*\)\s*(?:const)?\s*(\{|;)`)

	upropertyMember = regexp.MustCompile(`(?m)^[ \t]*(?:UPROPERTY\s*\([^)]*\)\s*)?([\w:<>,\*&\s]+?)\s+(\w+)\s*[=;(]`)
)

// ExtractDefinition scans every source for declarations of kind matching
// name, returning results sorted by descending match quality (ties broken
// by shorter file path, then lower line_start). A candidate is included
// only if its best score is >= 0.60.
func ExtractDefinition(sources []Source, kind Kind, name string, fuzzy bool) ([]DefinitionResult, error) {
	var results []DefinitionResult
	for _, src := range sources {
		found := scanKind(src, kind)
		for _, cand := range found {
			var score float64
			if cand.name == name {
				score = 1.00
			} else if fuzzy {
				score = matchScore(name, cand.name)
			} else {
				continue
			}
			if score < 0.60 {
				continue
			}
			dr := buildResult(src, kind, cand, score)
			results = append(results, dr)
		}
	}
	if !fuzzy {
		// Automatic fallback: if no exact matches were found anywhere,
		// retry every source with fuzzy scoring before giving up.
		if len(results) == 0 {
			return ExtractDefinition(sources, kind, name, true)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].MatchQuality != results[j].MatchQuality {
			return results[i].MatchQuality > results[j].MatchQuality
		}
		if len(results[i].FilePath) != len(results[j].FilePath) {
			return len(results[i].FilePath) < len(results[j].FilePath)
		}
		return results[i].LineStart < results[j].LineStart
	})
	return results, nil
}

// ScanFile returns every struct/class/enum/function declaration found in
// one source, regardless of name, for outline views.
func ScanFile(src Source) []DefinitionResult {
	var out []DefinitionResult
	for _, kind := range []Kind{KindStruct, KindClass, KindEnum, KindFunction} {
		for _, cand := range scanKind(src, kind) {
			out = append(out, buildResult(src, kind, cand, 1.0))
		}
	}
	return out
}

type candidate struct {
	name       string
	declStart  int
	bodyHintEnd int // for functions: end of the matched signature+brace/semicolon
	isDeclOnly bool
}

func scanKind(src Source, kind Kind) []candidate {
	switch kind {
	case KindStruct, KindClass:
		return scanStructClass(src, kind)
	case KindEnum:
		return scanEnum(src)
	case KindFunction:
		return scanFunction(src)
	default:
		return nil
	}
}

func scanStructClass(src Source, kind Kind) []candidate {
	var out []candidate
	for _, m := range structClassDecl.FindAllStringSubmatchIndex(src.Text, -1) {
		keyword := src.Text[m[2]:m[3]]
		if (kind == KindStruct && keyword != "struct") || (kind == KindClass && keyword != "class") {
			continue
		}
		name := src.Text[m[4]:m[5]]
		out = append(out, candidate{name: name, declStart: m[0]})
	}
	return out
}

func scanEnum(src Source) []candidate {
	var out []candidate
	for _, m := range enumDecl.FindAllStringSubmatchIndex(src.Text, -1) {
		name := src.Text[m[4]:m[5]]
		out = append(out, candidate{name: name, declStart: m[0]})
	}
	return out
}

func scanFunction(src Source) []candidate {
	var out []candidate
	for _, m := range functionDecl.FindAllStringSubmatchIndex(src.Text, -1) {
		name := src.Text[m[2]:m[3]]
		terminator := src.Text[m[4]:m[5]]
		out = append(out, candidate{name: name, declStart: m[0], isDeclOnly: terminator == ";"})
	}
	return out
}

// buildResult locates the declaration's body (if any) via the brace
// matcher and assembles the DefinitionResult.
func buildResult(src Source, kind Kind, cand candidate, score float64) DefinitionResult {
	lineStart := lineAt(src.Text, cand.declStart)

	if kind == KindFunction && cand.isDeclOnly {
		return DefinitionResult{
			EntityType:   kind,
			EntityName:   cand.name,
			FilePath:     src.Path,
			LineStart:    lineStart,
			LineEnd:      lineStart,
			MatchQuality: score,
		}
	}

	open := findOpenBrace(src.Text, cand.declStart)
	if open < 0 {
		// Pure declaration (or malformed input): treat as single-line.
		return DefinitionResult{
			EntityType:   kind,
			EntityName:   cand.name,
			FilePath:     src.Path,
			LineStart:    lineStart,
			LineEnd:      lineStart,
			MatchQuality: score,
		}
	}
	if kind == KindFunction {
		// Pure declaration if the brace is not on the matched line or the
		// next two lines.
		if lineAt(src.Text, open)-lineStart > 2 {
			return DefinitionResult{
				EntityType:   kind,
				EntityName:   cand.name,
				FilePath:     src.Path,
				LineStart:    lineStart,
				LineEnd:      lineStart,
				MatchQuality: score,
			}
		}
	}
	closeEnd := matchBraces(src.Text, open)
	if closeEnd < 0 {
		return DefinitionResult{
			EntityType:   kind,
			EntityName:   cand.name,
			FilePath:     src.Path,
			LineStart:    lineStart,
			LineEnd:      lineStart,
			MatchQuality: score,
		}
	}
	body := src.Text[cand.declStart:closeEnd]
	var members []string
	if kind == KindStruct || kind == KindClass {
		members = extractStructMembers(src.Text[open:closeEnd])
	} else if kind == KindEnum {
		members = extractEnumMembers(src.Text[open:closeEnd])
	}
	return DefinitionResult{
		EntityType:     kind,
		EntityName:     cand.name,
		FilePath:       src.Path,
		LineStart:      lineStart,
		LineEnd:        lineAt(src.Text, closeEnd),
		DefinitionText: body,
		Members:        members,
		MatchQuality:   score,
	}
}

// extractStructMembers finds lines matching `UPROPERTY(...)? TYPE NAME [=;(]`
// or bare `TYPE NAME;` at brace depth 1 within body (body spans the
// struct/class's outer braces).
func extractStructMembers(body string) []string {
	var members []string
	depth := 0
	lineStart := 0
	for i := 0; i <= len(body); i++ {
		if i == len(body) || body[i] == '\n' {
			line := body[lineStart:i]
			trimmed := strings.TrimSpace(line)
			if depth == 1 {
				if m := upropertyMember.FindStringSubmatch(line); m != nil {
					typ := strings.TrimSpace(m[1])
					nm := strings.TrimSpace(m[2])
					if typ != "" && nm != "" && !isControlKeyword(typ) {
						members = append(members, typ+" "+nm)
					}
				}
			}
			_ = trimmed
			lineStart = i + 1
		}
		if i < len(body) {
			switch body[i] {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
	}
	return members
}

func isControlKeyword(s string) bool {
	switch s {
	case "if", "for", "while", "switch", "return", "else":
		return true
	}
	return false
}

// extractEnumMembers captures all identifiers at brace-depth 1 up to a
// comma or '=' within body (body spans the enum's outer braces).
func extractEnumMembers(body string) []string {
	inner := body
	if len(inner) >= 2 {
		if first := strings.IndexByte(inner, '{'); first >= 0 {
			if last := strings.LastIndexByte(inner, '}'); last > first {
				inner = inner[first+1 : last]
			}
		}
	}
	var members []string
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			part = strings.TrimSpace(part[:eq])
		}
		if part != "" {
			members = append(members, part)
		}
	}
	return members
}

// ExtractFailure wraps the "no matching declaration" outcome, returned as
// an empty slice rather than an error per the taxonomy, but kept available
// for callers that want to log the distinction explicitly.
var ExtractFailure = coreerrors.New(coreerrors.KindExtractFailure, "no matching declaration found")
