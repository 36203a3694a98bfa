package match

import (
	"context"
	"regexp"
	"strings"
)

// Matcher proposes a raw value for one fact type from conversation text.
type Matcher interface {
	Name() string
	TryMatch(ctx context.Context, text string) (string, bool)
}

// RegexMatcher returns the trimmed first capture group of its pattern.
type RegexMatcher struct {
	name string
	re   *regexp.Regexp
}

// NewRegexMatcher compiles pattern case-insensitively. The pattern must have
// at least one capture group.
func NewRegexMatcher(name, pattern string) (*RegexMatcher, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	return &RegexMatcher{name: name, re: re}, nil
}

func MustRegex(name, pattern string) *RegexMatcher {
	m, err := NewRegexMatcher(name, pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *RegexMatcher) Name() string { return m.name }

func (m *RegexMatcher) TryMatch(_ context.Context, text string) (string, bool) {
	sub := m.re.FindStringSubmatch(text)
	if len(sub) < 2 {
		return "", false
	}
	v := strings.TrimSpace(sub[1])
	if v == "" {
		return "", false
	}
	return v, true
}

// CombineTurn joins a user utterance and the assistant reply into one scan text.
// The reply is included because restatements often carry the canonical value.
func CombineTurn(userMessage, assistantReply string) string {
	u := strings.TrimSpace(userMessage)
	a := strings.TrimSpace(assistantReply)
	switch {
	case u == "":
		return a
	case a == "":
		return u
	default:
		return u + " " + a
	}
}
