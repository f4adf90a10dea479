package moderation

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Matcher tests normalised message content against a guild's configured patterns. It is an opaque interface so the
// matching strategy (substring, regex, external classifier) can change without touching the evaluator.
type Matcher interface {
	// Match reports whether content matches any of the given patterns, and if so which pattern matched first.
	Match(content string, patterns []string) (matched bool, pattern string)
}

// SubstringMatcher is a case-insensitive, HTML-stripped substring matcher. It strips markup with bluemonday before
// comparing so that patterns cannot be evaded by interleaving tags.
type SubstringMatcher struct {
	stripPolicy *bluemonday.Policy
}

// NewSubstringMatcher creates a substring-set matcher.
func NewSubstringMatcher() *SubstringMatcher {
	return &SubstringMatcher{stripPolicy: bluemonday.StrictPolicy()}
}

// Match normalises content (strip tags, lowercase, trim) and checks it for each pattern in order, returning on the
// first hit.
func (m *SubstringMatcher) Match(content string, patterns []string) (bool, string) {
	stripped := m.stripPolicy.Sanitize(content)
	normalised := strings.ToLower(strings.TrimSpace(stripped))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.Contains(normalised, p) {
			return true, p
		}
	}
	return false, ""
}
