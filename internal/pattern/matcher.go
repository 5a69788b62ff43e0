// Package pattern decides whether a path relative to a scanned root is excluded
// by a list of ignore globs.
//
// Matching always has two modifiers enabled:
//   - Base-name matching: a pattern without a "/" is matched against the last
//     path segment only, so "*.log" excludes "logs/app.log".
//   - Dot matching: wildcards match names starting with ".", so "*" excludes
//     ".env" and "*rc" excludes ".bashrc".
//
// There is no negation and no precedence; any single match excludes.
package pattern

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// separator is the canonical path separator paths and patterns are normalized to
const separator = '/'

// rule is a single compiled ignore pattern
type rule struct {
	source  string
	glob    glob.Glob // nil when the pattern failed to compile
	literal string    // used when glob is nil
	base    bool      // match against the last path segment only
}

func (r rule) match(relPath string) bool {
	target := relPath
	if r.base {
		target = path.Base(relPath)
	}
	if r.glob == nil {
		return target == r.literal
	}
	return r.glob.Match(target)
}

// Matcher is a compiled, immutable set of ignore patterns.
// It is safe for concurrent use.
type Matcher struct {
	rules []rule
}

// NewMatcher compiles patterns once for repeated matching.
// Blank patterns are skipped. Patterns that are not valid globs (for example an
// unclosed "[") are compared literally instead of being rejected.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		m.add(p)
	}
	return m
}

func (m *Matcher) add(raw string) {
	p := normalizePattern(raw)
	if p == "" {
		return
	}

	m.rules = append(m.rules, compileRule(raw, p))

	// A leading "**/" may also match zero directories
	if rest := strings.TrimPrefix(p, "**/"); rest != p && rest != "" {
		m.rules = append(m.rules, compileRule(raw, rest))
	}
}

func compileRule(source, p string) rule {
	r := rule{
		source: source,
		base:   !strings.ContainsRune(p, separator),
	}
	g, err := glob.Compile(p, separator)
	if err != nil {
		r.literal = p
		return r
	}
	r.glob = g
	return r
}

// Len returns the number of compiled rules
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Match reports whether relPath is excluded by any pattern.
// A nil or empty Matcher never excludes anything.
func (m *Matcher) Match(relPath string) bool {
	if m.Len() == 0 {
		return false
	}

	p := NormalizePath(relPath)
	if p == "" {
		return false
	}

	for _, r := range m.rules {
		if r.match(p) {
			return true
		}
	}
	return false
}

// MatchingPattern returns the original text of the first pattern excluding
// relPath, or "" if none does.
func (m *Matcher) MatchingPattern(relPath string) string {
	if m.Len() == 0 {
		return ""
	}
	p := NormalizePath(relPath)
	if p == "" {
		return ""
	}
	for _, r := range m.rules {
		if r.match(p) {
			return r.source
		}
	}
	return ""
}

// ShouldIgnore reports whether relPath matches any of patterns.
// It compiles patterns on every call; use NewMatcher when matching many paths.
func ShouldIgnore(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return NewMatcher(patterns).Match(relPath)
}

// NormalizePath converts relPath to forward slashes and strips a leading "./"
func NormalizePath(relPath string) string {
	p := filepath.ToSlash(relPath)
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimSuffix(p, "/")
}

// normalizePattern trims whitespace and the anchoring/directory markers the
// matcher has no use for: a leading "/" or "./" and a trailing "/".
func normalizePattern(raw string) string {
	p := strings.TrimSpace(raw)
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	p = strings.TrimLeft(p, "/")
	p = strings.TrimRight(p, "/")
	return p
}
