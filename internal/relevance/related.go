package relevance

import (
	"fmt"
	"sort"

	"github.com/TobiSchelling/gearlinks/internal/content"
)

// LinkType classifies a linking suggestion.
type LinkType string

const (
	LinkRelated    LinkType = "related"
	LinkSupporting LinkType = "supporting"
	LinkComparison LinkType = "comparison"
	LinkCategory   LinkType = "category"
)

// relatedTitleKeywords is the shared title-keyword count above which two
// posts are considered to cover the same topic.
const relatedTitleKeywords = 2

// Suggestion proposes linking SourceSlug to TargetSlug.
type Suggestion struct {
	SourceSlug string
	TargetSlug string
	AnchorText string
	Context    string
	LinkType   LinkType
	Score      int
}

func sortScored(s []Scored) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Score > s[j].Score })
}

// RelatedScored returns up to limit posts most related to slug, with scores.
// An unknown slug yields nil.
func (e *Engine) RelatedScored(corpus []content.Post, slug string, limit int) []Scored {
	src := indexOf(corpus, slug)
	if src < 0 || limit <= 0 {
		return nil
	}
	ranked := e.rank(corpus, e.allFeatures(corpus), src)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// RelatedPosts returns up to limit posts most related to slug, never
// including slug itself.
func (e *Engine) RelatedPosts(corpus []content.Post, slug string, limit int) []content.Post {
	scored := e.RelatedScored(corpus, slug, limit)
	if scored == nil {
		return nil
	}
	out := make([]content.Post, len(scored))
	for i, s := range scored {
		out[i] = s.Post
	}
	return out
}

// LinkingSuggestions proposes, for every post, links to its best candidates
// scoring at least minScore. The result is ordered by score across the corpus.
func (e *Engine) LinkingSuggestions(corpus []content.Post, minScore int) []Suggestion {
	all := e.allFeatures(corpus)

	var out []Suggestion
	for src, source := range corpus {
		n := 0
		for _, cand := range e.rank(corpus, all, src) {
			if n == e.suggestionsPerPost {
				break
			}
			if cand.Score < minScore {
				// ranked descending, nothing further qualifies
				break
			}
			linkType := classify(source, cand.Post)
			out = append(out, Suggestion{
				SourceSlug: source.Slug,
				TargetSlug: cand.Post.Slug,
				AnchorText: anchorText(cand.Post, linkType),
				Context:    fmt.Sprintf("Link from %q to %q", source.Title, cand.Post.Title),
				LinkType:   linkType,
				Score:      cand.Score,
			})
			n++
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// classify picks the first matching link type in priority order:
// comparison, category, related, supporting.
func classify(source, target content.Post) LinkType {
	if isComparison(source.Title) || isComparison(target.Title) {
		return LinkComparison
	}
	if source.Category != "" && source.Category == target.Category {
		return LinkCategory
	}
	shared := countShared(ExtractKeywords(source.Title), toSet(ExtractKeywords(target.Title)))
	if shared > relatedTitleKeywords {
		return LinkRelated
	}
	return LinkSupporting
}

func anchorText(target content.Post, t LinkType) string {
	switch t {
	case LinkComparison:
		return "compare with " + target.Title
	case LinkCategory:
		return "other " + anchorCategory(target.Category) + " options"
	case LinkRelated:
		return "learn more about " + target.Title
	default:
		return target.Title
	}
}
