// Package relevance scores how related two posts are and turns the scores
// into related-post lists, internal linking suggestions and inline links.
//
// Scores are heuristic, non-negative and unbounded. The weights below are
// tunables carried over from the live site, not calibrated values.
package relevance

import (
	"strings"

	"github.com/TobiSchelling/gearlinks/internal/content"
)

const (
	CategoryWeight  = 30
	KeywordWeight   = 5
	TagWeight       = 10
	TitleWordWeight = 3
	ComparisonBoost = 15
	ProductWeight   = 20

	DefaultSuggestionsPerPost = 5
)

// Engine scores posts against each other.
type Engine struct {
	matcher            ProductMatcher
	suggestionsPerPost int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMatcher replaces the product matcher.
func WithMatcher(m ProductMatcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithSuggestionsPerPost caps how many suggestions each source post gets.
func WithSuggestionsPerPost(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.suggestionsPerPost = n
		}
	}
}

// New creates an engine using DefaultMatcher unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{suggestionsPerPost: DefaultSuggestionsPerPost}
	for _, opt := range opts {
		opt(e)
	}
	if e.matcher == nil {
		e.matcher = DefaultMatcher()
	}
	return e
}

// features is everything Score needs from one post, computed once per post.
type features struct {
	category   string
	keywords   []string
	keywordSet map[string]bool
	tags       []string
	tagSet     map[string]bool
	words      []string
	wordSet    map[string]bool
	comparison bool
	products   []string
	productSet map[string]bool
}

func (e *Engine) features(p content.Post) *features {
	text := p.Title + " " + p.Description
	f := &features{
		category:   p.Category,
		keywords:   ExtractKeywords(text),
		tags:       p.Tags,
		tagSet:     toSet(p.Tags),
		words:      titleWords(p.Title),
		comparison: isComparison(p.Title),
		products:   e.matcher.Products(text),
	}
	f.keywordSet = toSet(f.keywords)
	f.wordSet = toSet(f.words)
	f.productSet = toSet(f.products)
	return f
}

// Score rates how related candidate is to source. Overlaps are counted over
// the source's items, so Score is not guaranteed to be symmetric.
func (e *Engine) Score(source, candidate content.Post) int {
	return score(e.features(source), e.features(candidate))
}

func score(a, b *features) int {
	s := 0
	if a.category != "" && a.category == b.category {
		s += CategoryWeight
	}
	s += KeywordWeight * countShared(a.keywords, b.keywordSet)
	if len(a.tags) > 0 && len(b.tags) > 0 {
		s += TagWeight * countShared(a.tags, b.tagSet)
	}
	s += TitleWordWeight * countShared(a.words, b.wordSet)
	if a.comparison || b.comparison {
		s += ComparisonBoost
	}
	s += ProductWeight * countShared(a.products, b.productSet)
	return s
}

// Scored pairs a post with its score against some source post.
type Scored struct {
	Post  content.Post
	Score int
}

// rank scores every post except source, highest first. Ties keep corpus order.
func (e *Engine) rank(corpus []content.Post, all []*features, src int) []Scored {
	out := make([]Scored, 0, len(corpus))
	for i, p := range corpus {
		if i == src || p.Slug == corpus[src].Slug {
			continue
		}
		out = append(out, Scored{Post: p, Score: score(all[src], all[i])})
	}
	sortScored(out)
	return out
}

func (e *Engine) allFeatures(corpus []content.Post) []*features {
	all := make([]*features, len(corpus))
	for i, p := range corpus {
		all[i] = e.features(p)
	}
	return all
}

func indexOf(corpus []content.Post, slug string) int {
	for i, p := range corpus {
		if p.Slug == slug {
			return i
		}
	}
	return -1
}

// anchorCategory renders a category slug for anchor text. Only the first
// dash becomes a space, matching the anchors already published on the site.
func anchorCategory(category string) string {
	return strings.Replace(category, "-", " ", 1)
}
