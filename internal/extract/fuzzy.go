package extract

import "strings"

// uePrefixes are the common Unreal Engine identifier prefixes stripped
// when the next character is uppercase.
var uePrefixes = []byte{'F', 'U', 'A', 'I', 'E'}

// stripUEPrefix removes a leading single-letter UE prefix from name when
// followed by an uppercase letter, returning the stripped form and
// whether stripping occurred.
func stripUEPrefix(name string) (string, bool) {
	if len(name) < 2 {
		return name, false
	}
	for _, p := range uePrefixes {
		if name[0] == p && name[1] >= 'A' && name[1] <= 'Z' {
			return name[1:], true
		}
	}
	return name, false
}

// matchScore computes the fuzzy-match score between a query name and a
// candidate declaration name, per the fixed score table. It returns the
// best score across the original/prefix-stripped variants of both names.
func matchScore(query, candidate string) float64 {
	qStripped, qHadPrefix := stripUEPrefix(query)
	cStripped, cHadPrefix := stripUEPrefix(candidate)

	best := 0.0
	consider := func(s float64) {
		if s > best {
			best = s
		}
	}

	if query == candidate {
		consider(1.00)
	}
	if strings.EqualFold(query, candidate) {
		consider(0.95)
	}
	if qStripped == cStripped {
		consider(0.90)
	}
	if qHadPrefix != cHadPrefix {
		if strings.EqualFold(qStripped, cStripped) {
			if cHadPrefix {
				consider(0.88)
			} else {
				consider(0.85)
			}
		}
	}
	if cStripped != "" && strings.Contains(strings.ToLower(qStripped), strings.ToLower(cStripped)) ||
		(qStripped != "" && strings.Contains(strings.ToLower(cStripped), strings.ToLower(qStripped))) {
		consider(0.75)
	}
	if strings.Contains(strings.ToLower(query), strings.ToLower(candidate)) ||
		strings.Contains(strings.ToLower(candidate), strings.ToLower(query)) {
		consider(0.70)
	}
	if levenshtein(strings.ToLower(qStripped), strings.ToLower(cStripped)) <= 2 {
		consider(0.65)
	}
	if levenshtein(strings.ToLower(query), strings.ToLower(candidate)) <= 2 {
		consider(0.60)
	}
	return best
}

// levenshtein computes the edit distance between a and b.
func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = minInt(del, minInt(ins, sub))
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
