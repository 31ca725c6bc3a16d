// Package indexignore implements hierarchical .indexignore matching,
// syntactically compatible with .gitignore: comments, blank lines, plain
// directory-name matches anywhere in the path, and glob patterns for file
// names. There is no un-ignore syntax; later-loaded rules only add
// exclusions.
package indexignore

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// rule is one compiled pattern line from an .indexignore file.
type rule struct {
	pattern  string
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
	anchored bool
	base     string // directory the rule file was loaded from
}

// Matcher holds every rule loaded so far and answers Match queries against
// them. It is safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

// New returns an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// AddPattern compiles and appends a single pattern line, rooted at base.
func (m *Matcher) AddPattern(pattern, base string) {
	pattern = strings.TrimRight(pattern, "\r\n")
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}
	r := rule{pattern: pattern, base: base}
	if strings.HasPrefix(pattern, "!") {
		// No un-ignore syntax: a leading '!' is treated as a literal
		// rather than a negation so older gitignore-style inputs don't
		// silently re-include files.
		pattern = pattern
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.Contains(pattern, "/") {
		r.anchored = true
	}
	re, err := patternToRegex(pattern)
	if err != nil {
		return
	}
	r.regex = re
	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromFile loads every pattern line in the file at path, using the
// file's containing directory as the base for anchored patterns.
func (m *Matcher) AddFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	base := filepath.Dir(path)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddPattern(strings.TrimSpace(sc.Text()), base)
	}
	return sc.Err()
}

// Match reports whether path (relative to base or absolute) should be
// excluded. isDir indicates whether path names a directory.
func (m *Matcher) Match(path string, isDir bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = filepath.ToSlash(path)
	matched := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if matchRule(r, path, isDir) {
			matched = true
		}
	}
	return matched
}

// matchRule reports whether a single compiled rule matches path.
func matchRule(r rule, path string, isDir bool) bool {
	if r.anchored {
		rel, err := filepath.Rel(filepath.ToSlash(r.base), path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		return r.regex.MatchString(rel)
	}
	// Unanchored: plain names match any path component.
	for _, seg := range strings.Split(path, "/") {
		if r.regex.MatchString(seg) {
			return true
		}
	}
	return r.regex.MatchString(filepath.Base(path))
}

// patternToRegex compiles a gitignore-style glob into an anchored regexp.
func patternToRegex(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '*' && i+1 < len(runes) && runes[i+1] == '*':
			// "**" matches across path separators.
			b.WriteString(".*")
			i++
			if i+1 < len(runes) && runes[i+1] == '/' {
				i++
			}
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		case c == '.':
			b.WriteString(`\.`)
		case c == '[':
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j < len(runes) {
				b.WriteString("[" + string(runes[i+1:j]) + "]")
				i = j
			} else {
				b.WriteString(`\[`)
			}
		case strings.ContainsRune(`\^$+(){}|`, c):
			b.WriteRune('\\')
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Loader collects and compiles every .indexignore file reachable from the
// configured load order in one pass, per the "pure function of cwd + root
// set" design note: cwd, then each root, then the user's home directory.
type Loader struct {
	FileName string // e.g. ".indexignore"
}

// Load builds a single Matcher from cwd, each root, and home, in that
// order. Missing files are silently skipped; later files only add rules.
func (l Loader) Load(roots []string) (*Matcher, error) {
	name := l.FileName
	if name == "" {
		name = ".indexignore"
	}
	m := New()
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	dirs = append(dirs, roots...)
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := m.AddFromFile(filepath.Join(d, name)); err != nil {
			return nil, err
		}
	}
	return m, nil
}
