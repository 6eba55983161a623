package content

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const maxParallelReads = 8

// Corpus is an immutable, slug-indexed set of posts.
type Corpus struct {
	posts  []Post
	bySlug map[string]int
}

// NewCorpus indexes posts by slug. Posts keep their given order.
func NewCorpus(posts []Post) (*Corpus, error) {
	c := &Corpus{posts: posts, bySlug: make(map[string]int, len(posts))}
	for i, p := range posts {
		if p.Slug == "" {
			return nil, fmt.Errorf("post %q has no slug", p.Path)
		}
		if j, dup := c.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate slug %q (%s, %s)", p.Slug, posts[j].Path, p.Path)
		}
		c.bySlug[p.Slug] = i
	}
	return c, nil
}

// LoadCorpus reads every .mdx and .md file below dir. Posts are ordered by
// date, newest first, then by slug.
func LoadCorpus(ctx context.Context, dir string) (*Corpus, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".mdx", ".md":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	posts := make([]Post, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			post, err := ParsePost(path, data)
			if err != nil {
				return err
			}
			posts[i] = post
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Slug < posts[j].Slug
	})

	log.Printf("Loaded %d posts from %s", len(posts), dir)
	return NewCorpus(posts)
}

// Posts returns the posts in corpus order. Callers must not modify the slice.
func (c *Corpus) Posts() []Post {
	return c.posts
}

// Len returns the number of posts.
func (c *Corpus) Len() int {
	return len(c.posts)
}

// BySlug looks up a post.
func (c *Corpus) BySlug(slug string) (Post, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Post{}, false
	}
	return c.posts[i], true
}

// Get is BySlug returning ErrPostNotFound for unknown slugs.
func (c *Corpus) Get(slug string) (Post, error) {
	p, ok := c.BySlug(slug)
	if !ok {
		return Post{}, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}
	return p, nil
}

// Merge returns a new corpus with extra appended. Posts whose slug is already
// taken are skipped; the count of added posts is returned.
func (c *Corpus) Merge(extra []Post) (*Corpus, int) {
	posts := make([]Post, len(c.posts), len(c.posts)+len(extra))
	copy(posts, c.posts)
	seen := make(map[string]bool, len(c.bySlug)+len(extra))
	for slug := range c.bySlug {
		seen[slug] = true
	}

	added := 0
	for _, p := range extra {
		if p.Slug == "" || seen[p.Slug] {
			continue
		}
		seen[p.Slug] = true
		posts = append(posts, p)
		added++
	}

	merged, err := NewCorpus(posts)
	if err != nil {
		// unreachable: slugs were deduplicated above
		panic(err)
	}
	return merged, added
}

// ByCategory returns the posts in category, in corpus order.
func (c *Corpus) ByCategory(category string) []Post {
	var out []Post
	for _, p := range c.posts {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// ByTags returns up to limit posts sharing at least one tag with tags, most
// shared tags first. Ties keep corpus order.
func (c *Corpus) ByTags(tags []string, limit int) []Post {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}

	type hit struct {
		post    Post
		overlap int
	}
	var hits []hit
	for _, p := range c.posts {
		n := 0
		for _, t := range p.Tags {
			if want[t] {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, hit{p, n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].overlap > hits[j].overlap })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Post, len(hits))
	for i, h := range hits {
		out[i] = h.post
	}
	return out
}

// CategoryCount is a category and the number of posts filed under it.
type CategoryCount struct {
	Name  string
	Label string
	Posts int
}

// Categories lists non-empty categories sorted by name.
func (c *Corpus) Categories() []CategoryCount {
	counts := make(map[string]int)
	for _, p := range c.posts {
		if p.Category != "" {
			counts[p.Category]++
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Label: CategoryLabel(name), Posts: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Crumb is one breadcrumb entry.
type Crumb struct {
	Label string
	URL   string
}

// Breadcrumbs returns Home > Category > Post for slug, or nil when the slug is unknown.
func (c *Corpus) Breadcrumbs(slug string) []Crumb {
	p, ok := c.BySlug(slug)
	if !ok {
		return nil
	}
	crumbs := []Crumb{{Label: "Home", URL: "/"}}
	if p.Category != "" {
		crumbs = append(crumbs, Crumb{Label: CategoryLabel(p.Category), URL: "/category/" + p.Category})
	}
	return append(crumbs, Crumb{Label: p.Title, URL: "/" + p.Slug})
}

// CategoryLabel turns "power-stations" into "Power Stations".
func CategoryLabel(category string) string {
	words := strings.Fields(HumanizeCategory(category))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
