package relevance

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TobiSchelling/gearlinks/internal/content"
)

func samplePosts() []content.Post {
	return []content.Post{
		{Slug: "a", Title: "Jackery 300 vs Goal Zero 400", Category: "power-stations"},
		{Slug: "b", Title: "Best Power Banks 2025", Category: "power-banks"},
		{Slug: "c", Title: "Jackery 500 Review", Category: "power-stations"},
	}
}

func slugs(posts []content.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("The BEST solar-panel kits, with 2025 deals & more!")
	want := []string{"solar", "panel", "kits", "2025", "deals"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultMatcher(t *testing.T) {
	got := DefaultMatcher().Products("Jackery Explorer 300 vs Goal  Zero Yeti 400 and an Anker PowerCore 10000")
	want := []string{"jackery", "goal zero", "anker", "explorer 300", "yeti 400", "powercore 10000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
}

func TestScore(t *testing.T) {
	e := New()
	posts := samplePosts()

	if got := e.Score(posts[0], posts[2]); got != 73 {
		t.Errorf("expected score 73 for a->c, got %d", got)
	}
	if got := e.Score(posts[0], posts[1]); got != 15 {
		t.Errorf("expected score 15 for a->b, got %d", got)
	}
	if got := e.Score(posts[1], posts[2]); got != 0 {
		t.Errorf("expected score 0 for b->c, got %d", got)
	}
}

func TestScoreSameCategory(t *testing.T) {
	e := New()
	a := content.Post{Slug: "x", Title: "Alpha", Category: "tents"}
	b := content.Post{Slug: "y", Title: "Omega", Category: "tents"}
	if got := e.Score(a, b); got < CategoryWeight {
		t.Errorf("expected at least %d for shared category, got %d", CategoryWeight, got)
	}

	a.Category, b.Category = "", ""
	if got := e.Score(a, b); got != 0 {
		t.Errorf("expected empty categories not to match, got %d", got)
	}
}

func TestScoreSharedTag(t *testing.T) {
	e := New()
	a := content.Post{Slug: "x", Title: "Alpha", Tags: []string{"camping", "solar"}}
	b := content.Post{Slug: "y", Title: "Omega", Tags: []string{"solar"}}
	if got := e.Score(a, b); got < TagWeight {
		t.Errorf("expected at least %d for shared tag, got %d", TagWeight, got)
	}
}

func TestRelatedPosts(t *testing.T) {
	e := New()
	posts := samplePosts()

	got := slugs(e.RelatedPosts(posts, "a", 2))
	if diff := cmp.Diff([]string{"c", "b"}, got); diff != "" {
		t.Errorf("related mismatch (-want +got):\n%s", diff)
	}

	got = slugs(e.RelatedPosts(posts, "a", 1))
	if diff := cmp.Diff([]string{"c"}, got); diff != "" {
		t.Errorf("limited related mismatch (-want +got):\n%s", diff)
	}

	for _, slug := range []string{"a", "b", "c"} {
		for _, p := range e.RelatedPosts(posts, slug, 10) {
			if p.Slug == slug {
				t.Errorf("related posts for %s include the post itself", slug)
			}
		}
	}

	if got := e.RelatedPosts(posts, "missing", 3); len(got) != 0 {
		t.Errorf("expected no related posts for unknown slug, got %v", slugs(got))
	}
}

func TestRelatedPostsStableOnTies(t *testing.T) {
	e := New()
	posts := []content.Post{
		{Slug: "src", Title: "Alpha", Category: "tents"},
		{Slug: "t1", Title: "Beta", Category: "tents"},
		{Slug: "t2", Title: "Gamma", Category: "tents"},
		{Slug: "t3", Title: "Delta", Category: "tents"},
	}
	got := slugs(e.RelatedPosts(posts, "src", 3))
	if diff := cmp.Diff([]string{"t1", "t2", "t3"}, got); diff != "" {
		t.Errorf("tie order mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkingSuggestions(t *testing.T) {
	e := New()
	got := e.LinkingSuggestions(samplePosts(), 20)

	want := []Suggestion{
		{
			SourceSlug: "a",
			TargetSlug: "c",
			AnchorText: "compare with Jackery 500 Review",
			Context:    `Link from "Jackery 300 vs Goal Zero 400" to "Jackery 500 Review"`,
			LinkType:   LinkComparison,
			Score:      73,
		},
		{
			SourceSlug: "c",
			TargetSlug: "a",
			AnchorText: "compare with Jackery 300 vs Goal Zero 400",
			Context:    `Link from "Jackery 500 Review" to "Jackery 300 vs Goal Zero 400"`,
			LinkType:   LinkComparison,
			Score:      73,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkingSuggestionsPerPostCap(t *testing.T) {
	var posts []content.Post
	for _, s := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"} {
		posts = append(posts, content.Post{Slug: s, Title: "Title " + s, Category: "tents"})
	}
	e := New(WithSuggestionsPerPost(2))
	counts := make(map[string]int)
	for _, s := range e.LinkingSuggestions(posts, 20) {
		counts[s.SourceSlug]++
		if s.Score < 20 {
			t.Errorf("suggestion %s->%s below min score: %d", s.SourceSlug, s.TargetSlug, s.Score)
		}
	}
	for slug, n := range counts {
		if n > 2 {
			t.Errorf("expected at most 2 suggestions for %s, got %d", slug, n)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		source content.Post
		target content.Post
		want   LinkType
		anchor string
	}{
		{
			name:   "category",
			source: content.Post{Title: "Tent Guide", Category: "camping-gear"},
			target: content.Post{Title: "Sleeping Bags", Category: "camping-gear"},
			want:   LinkCategory,
			anchor: "other camping gear options",
		},
		{
			name:   "related",
			source: content.Post{Title: "Solar Panel Kits Portable", Category: "solar"},
			target: content.Post{Title: "Portable Solar Panel Kits Compared", Category: "kits"},
			want:   LinkRelated,
			anchor: "learn more about Portable Solar Panel Kits Compared",
		},
		{
			name:   "supporting",
			source: content.Post{Title: "Tent Guide"},
			target: content.Post{Title: "Headlamps"},
			want:   LinkSupporting,
			anchor: "Headlamps",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.source, tt.target)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if anchor := anchorText(tt.target, got); anchor != tt.anchor {
				t.Errorf("expected anchor %q, got %q", tt.anchor, anchor)
			}
		})
	}
}

func TestAutoLink(t *testing.T) {
	e := New()
	posts := samplePosts()
	body := "We ran the Jackery 500 review rig for a week.\n\nSee also `Best Power Banks 2025`."

	got := e.AutoLink(posts, body, "a")
	want := "We ran the <a href=\"/c\" class=\"internal-link\">Jackery 500 review</a> rig for a week.\n\nSee also `Best Power Banks 2025`."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if again := e.AutoLink(posts, got, "a"); again != got {
		t.Errorf("expected AutoLink to be idempotent, got %q", again)
	}
}

func TestAutoLinkSkipsExistingLinksAndSelf(t *testing.T) {
	e := New()
	posts := samplePosts()

	body := "Read [Jackery 500 Review](/c) first. Then Jackery 500 Review again."
	if got := e.AutoLink(posts, body, "a"); got != body {
		t.Errorf("expected already linked title to be left alone, got %q", got)
	}

	body = "This is the Jackery 500 Review."
	if got := e.AutoLink(posts, body, "c"); got != body {
		t.Errorf("expected current post not to link to itself, got %q", got)
	}

	body = "The Jackery 500 Reviewer was wrong."
	if got := e.AutoLink(posts, body, "a"); got != body {
		t.Errorf("expected partial word not to be linked, got %q", got)
	}
}

func TestAutoLinkOncePerTarget(t *testing.T) {
	e := New()
	body := "Jackery 500 Review and Jackery 500 Review."
	got := e.AutoLink(samplePosts(), body, "a")
	if n := strings.Count(got, `class="internal-link"`); n != 1 {
		t.Errorf("expected exactly one link, got %d in %q", n, got)
	}
}

func TestAutoLinkShorterTitleOutsideLongerLink(t *testing.T) {
	e := New()
	posts := []content.Post{
		{Slug: "long", Title: "Jackery 500 Review"},
		{Slug: "short", Title: "Jackery 500"},
	}
	body := "Read the Jackery 500 Review. Later the Jackery 500 on its own."

	got := e.AutoLink(posts, body, "x")
	want := `Read the <a href="/long" class="internal-link">Jackery 500 Review</a>. ` +
		`Later the <a href="/short" class="internal-link">Jackery 500</a> on its own.`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if again := e.AutoLink(posts, got, "x"); again != got {
		t.Errorf("expected AutoLink to be idempotent, got %q", again)
	}
}

func TestAutoLinkInsideAngleBracketProse(t *testing.T) {
	e := New()
	posts := []content.Post{{Slug: "c", Title: "Jackery 500 Review"}}
	body := "a < b and the Jackery 500 Review > other"

	got := e.AutoLink(posts, body, "x")
	want := `a < b and the <a href="/c" class="internal-link">Jackery 500 Review</a> > other`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExportSuggestions(t *testing.T) {
	var buf bytes.Buffer
	err := ExportSuggestions(&buf, []Suggestion{
		{SourceSlug: "a", TargetSlug: "c", AnchorText: `say "hi"`, LinkType: LinkComparison, Score: 73},
	})
	if err != nil {
		t.Fatalf("ExportSuggestions: %v", err)
	}
	want := `"Source Post","Target Post","Anchor Text","Link Type","Relevance Score"` + "\n" +
		`"a","c","say ""hi""","comparison","73"` + "\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}
