// Package match provides the name-pattern and attribute tests the traversal
// plans are built from: wildcard detection, compiled name matchers, and
// access-flag and annotation checks.
package match

import (
	"strings"

	"github.com/gobwas/glob"
)

// HasWildcards reports whether the given name contains pattern markers and
// therefore cannot be used for a direct lookup.
func HasWildcards(s string) bool {
	return strings.ContainsAny(s, "*?%,") || strings.Contains(s, "///")
}

// Matcher matches internal names against one pattern, which may hold
// comma-separated alternatives. A '*' does not cross package separators,
// '**' does, '?' matches a single character and '%' is an alias for '*'.
type Matcher struct {
	raw  string
	alts []alternative
}

type alternative struct {
	literal string
	glob    glob.Glob
}

// NewMatcher compiles the given pattern.
func NewMatcher(pattern string) (*Matcher, error) {
	m := &Matcher{raw: pattern}
	for _, alt := range strings.Split(pattern, ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		norm := strings.ReplaceAll(alt, "%", "*")
		if !strings.ContainsAny(norm, "*?") {
			m.alts = append(m.alts, alternative{literal: norm})
			continue
		}
		g, err := glob.Compile(norm, '/')
		if err != nil {
			return nil, err
		}
		m.alts = append(m.alts, alternative{glob: g})
	}
	return m, nil
}

// Matches reports whether the name matches any alternative of the pattern.
func (m *Matcher) Matches(name string) bool {
	for _, alt := range m.alts {
		if alt.glob != nil {
			if alt.glob.Match(name) {
				return true
			}
		} else if alt.literal == name {
			return true
		}
	}
	return false
}

// String returns the original pattern.
func (m *Matcher) String() string {
	return m.raw
}

// Access reports whether the given access flags have all required bits set
// and none of the forbidden bits. Zero masks are unconstrained.
func Access(flags, requiredSet, requiredUnset uint16) bool {
	return flags&requiredSet == requiredSet && flags&requiredUnset == 0
}

// Annotation reports whether any of the given annotation types matches.
// Annotation inspection is the most expensive criterion; callers order it
// after name and access checks.
func Annotation(annotations []string, m *Matcher) bool {
	for _, a := range annotations {
		if m.Matches(a) {
			return true
		}
	}
	return false
}
