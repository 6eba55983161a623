package relevance

import (
	"regexp"
	"strings"
)

// ProductMatcher finds product mentions in free text. Returned names are
// compared verbatim between posts, so implementations should normalise them.
type ProductMatcher interface {
	Products(text string) []string
}

// DefaultProductPatterns recognise the power-gear brands and model lines the
// site covers. When a pattern has a capture group, the first group is the
// product name; otherwise the whole match is.
var DefaultProductPatterns = []string{
	`(?i)\b(jackery|goal\s+zero|ecoflow|bluetti|anker|ravpower|aukey)\b`,
	`(?i)\b((?:explorer|yeti|river|powercore|delta)\s+\d+\w*|ac\d+\w*)\b`,
	`(?i)\b\w+\s+(?:power\s+station|power\s+bank|generator|charger)\b`,
}

// RegexMatcher is a ProductMatcher driven by a list of regular expressions.
type RegexMatcher struct {
	patterns []*regexp.Regexp
}

// NewRegexMatcher compiles patterns.
func NewRegexMatcher(patterns ...string) (*RegexMatcher, error) {
	m := &RegexMatcher{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// DefaultMatcher returns a matcher over DefaultProductPatterns.
func DefaultMatcher() *RegexMatcher {
	m, err := NewRegexMatcher(DefaultProductPatterns...)
	if err != nil {
		panic(err)
	}
	return m
}

// Products returns the distinct lowercase, space-normalised matches in text,
// in pattern order then text order.
func (m *RegexMatcher) Products(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, re := range m.patterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			name := match[0]
			if len(match) > 1 && match[1] != "" {
				name = match[1]
			}
			name = strings.Join(strings.Fields(strings.ToLower(name)), " ")
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
