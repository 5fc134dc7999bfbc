package instrument

import (
	"strings"
)

// MethodMatcher selects methods by owner internal name, name and descriptor.
type MethodMatcher interface {
	MatchMethod(owner, name, desc string) bool
}

// WildcardMatcher matches method patterns with wildcard support.
//
// Supports patterns like:
//   - "app/Main.run(Lcontinuum/user/Continuation;)V" - exact method
//   - "app/Main.run" - every overload of run in app/Main
//   - "run" - run in any class
//   - "app/Main.*" - every method of app/Main
//   - "app/*" - every method of classes under app/
//   - "*" - everything
type WildcardMatcher struct {
	exact     map[string]bool // "owner.name(desc)"
	qualified map[string]bool // "owner.name"
	names     map[string]bool // unqualified "name"
	owners    map[string]bool // "owner.*"
	prefixes  []string        // "pkg/*"
	matchAll  bool
}

// NewWildcardMatcher creates a matcher from a list of patterns.
func NewWildcardMatcher(patterns []string) *WildcardMatcher {
	m := &WildcardMatcher{
		exact:     make(map[string]bool),
		qualified: make(map[string]bool),
		names:     make(map[string]bool),
		owners:    make(map[string]bool),
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case p == "*":
			m.matchAll = true
		case strings.HasSuffix(p, ".*"):
			m.owners[strings.TrimSuffix(p, ".*")] = true
		case strings.HasSuffix(p, "*"):
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, "*"))
		case strings.Contains(p, "("):
			m.exact[p] = true
		case strings.Contains(p, "."):
			m.qualified[p] = true
		default:
			m.names[p] = true
		}
	}
	return m
}

// MatchMethod returns true if the method matches any pattern.
func (m *WildcardMatcher) MatchMethod(owner, name, desc string) bool {
	if m.matchAll || m.owners[owner] || m.names[name] {
		return true
	}
	qualified := owner + "." + name
	if m.qualified[qualified] || m.exact[qualified+desc] {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(owner, p) {
			return true
		}
	}
	return false
}

// Empty reports whether the matcher was built without patterns.
func (m *WildcardMatcher) Empty() bool {
	return !m.matchAll && len(m.exact) == 0 && len(m.qualified) == 0 &&
		len(m.names) == 0 && len(m.owners) == 0 && len(m.prefixes) == 0
}

// CompositeMatcher combines multiple matchers.
type CompositeMatcher struct {
	matchers []MethodMatcher
}

// NewCompositeMatcher creates a matcher that matches if any sub-matcher matches.
func NewCompositeMatcher(matchers ...MethodMatcher) *CompositeMatcher {
	return &CompositeMatcher{matchers: matchers}
}

// MatchMethod returns true if any sub-matcher matches.
func (m *CompositeMatcher) MatchMethod(owner, name, desc string) bool {
	for _, matcher := range m.matchers {
		if matcher != nil && matcher.MatchMethod(owner, name, desc) {
			return true
		}
	}
	return false
}
