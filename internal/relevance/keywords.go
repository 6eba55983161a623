package relevance

import (
	"strings"
	"unicode"
)

const minKeywordLen = 4

var stopWords = toSet([]string{
	"this", "that", "with", "have", "will", "from", "they", "been", "were", "said",
	"each", "which", "their", "would", "there", "could", "other", "than", "very",
	"what", "know", "just", "first", "about", "after", "back", "also", "good",
	"well", "being", "only", "come", "work", "over", "should", "where", "most",
	"some", "time", "such", "even", "more", "like", "when", "here", "into",
	"through", "during", "before", "same", "best", "review", "reviews",
})

// ExtractKeywords lowercases text, turns everything except ASCII letters,
// digits, underscores and whitespace into spaces, and keeps the tokens longer
// than three characters that are not stop words. Order and duplicates are kept.
func ExtractKeywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, text)

	var out []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) < minKeywordLen || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// titleWords splits a title on whitespace after lowercasing. No stemming.
func titleWords(title string) []string {
	return strings.Fields(strings.ToLower(title))
}

// isComparison reports whether title is a head-to-head article. The check is
// the literal, case-sensitive substring "vs".
func isComparison(title string) bool {
	return strings.Contains(title, "vs")
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

// countShared counts the items of a (with repetition) that occur in b.
func countShared(a []string, b map[string]bool) int {
	n := 0
	for _, it := range a {
		if b[it] {
			n++
		}
	}
	return n
}
