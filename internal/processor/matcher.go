package processor

import (
	"fmt"
	"regexp"
)

// Matcher holds precompiled case-insensitive exclusion patterns.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles each pattern as a case-insensitive regular expression.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Match reports whether any pattern occurs anywhere in title.
func (m *Matcher) Match(title string) bool {
	if m == nil {
		return false
	}
	for _, re := range m.patterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
