package relevance

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/TobiSchelling/gearlinks/internal/content"
)

var (
	anchorRe   = regexp.MustCompile(`(?is)<a\b[^>]*>(.*?)</a>`)
	mdLinkRe   = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	htmlTagRe  = regexp.MustCompile(`</?[A-Za-z][^>]*>`)
	fenceRe    = regexp.MustCompile("(?s)```.*?```")
	codeSpanRe = regexp.MustCompile("`[^`\n]*`")
)

// AutoLink links the first unlinked mention of each other post's title in
// body to that post. Titles are tried longest first so a long title wins over
// a shorter one it contains. Text inside links, HTML tags and code is never
// touched, and a title that is already the text of a link is skipped, so
// running AutoLink on its own output changes nothing.
func (e *Engine) AutoLink(corpus []content.Post, body, currentSlug string) string {
	targets := make([]content.Post, 0, len(corpus))
	for _, p := range corpus {
		if p.Slug != currentSlug && strings.TrimSpace(p.Title) != "" {
			targets = append(targets, p)
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return len(targets[i].Title) > len(targets[j].Title)
	})

	for _, p := range targets {
		if linkedAlready(body, p.Title) {
			continue
		}
		start, end, ok := findMention(body, p.Title)
		if !ok {
			continue
		}
		link := `<a href="/` + p.Slug + `" class="internal-link">` + body[start:end] + `</a>`
		body = body[:start] + link + body[end:]
	}
	return body
}

// linkedAlready reports whether some link's text is exactly title.
func linkedAlready(body, title string) bool {
	title = strings.ToLower(strings.TrimSpace(title))
	for _, re := range []*regexp.Regexp{anchorRe, mdLinkRe} {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			if strings.ToLower(strings.TrimSpace(m[1])) == title {
				return true
			}
		}
	}
	return false
}

type span struct{ start, end int }

func protectedSpans(body string) []span {
	var spans []span
	for _, re := range []*regexp.Regexp{fenceRe, codeSpanRe, anchorRe, mdLinkRe, htmlTagRe} {
		for _, loc := range re.FindAllStringIndex(body, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	return spans
}

// findMention returns the first case-insensitive, word-bounded occurrence of
// title in body that does not overlap a protected span.
func findMention(body, title string) (int, int, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(title))
	if err != nil {
		return 0, 0, false
	}
	spans := protectedSpans(body)
	for _, loc := range re.FindAllStringIndex(body, -1) {
		if !wordBoundary(body, loc[0], loc[1]) || overlaps(spans, loc[0], loc[1]) {
			continue
		}
		return loc[0], loc[1], true
	}
	return 0, 0, false
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func overlaps(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}
