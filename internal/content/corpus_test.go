package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func slugs(posts []Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mdx", "---\ntitle: A\ndate: 2025-01-01\ncategory: power-stations\n---\nA body\n")
	writeFile(t, dir, "b.mdx", "---\ntitle: B\ndate: 2025-03-01\ncategory: power-banks\n---\n")
	writeFile(t, dir, "nested/c.md", "---\ntitle: C\ndate: 2025-02-01\ncategory: power-stations\n---\n")
	writeFile(t, dir, "README.txt", "ignored")

	c, err := LoadCorpus(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c", "a"}, slugs(c.Posts())); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	p, ok := c.BySlug("c")
	if !ok || p.Title != "C" {
		t.Errorf("expected post c, got %+v", p)
	}
}

func TestLoadCorpusDuplicateSlug(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.mdx", "---\nslug: same\ntitle: One\n---\n")
	writeFile(t, dir, "two.mdx", "---\nslug: same\ntitle: Two\n---\n")

	if _, err := LoadCorpus(context.Background(), dir); err == nil {
		t.Error("expected duplicate slug error")
	}
}

func TestLoadCorpusMissingDir(t *testing.T) {
	if _, err := LoadCorpus(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestGetNotFound(t *testing.T) {
	c, _ := NewCorpus([]Post{{Slug: "a"}})
	if _, err := c.Get("zzz"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
}

func TestByTags(t *testing.T) {
	c, _ := NewCorpus([]Post{
		{Slug: "one", Tags: []string{"camping"}},
		{Slug: "two", Tags: []string{"camping", "solar"}},
		{Slug: "three", Tags: []string{"audio"}},
		{Slug: "four", Tags: []string{"solar"}},
	})

	got := slugs(c.ByTags([]string{"camping", "solar"}, 0))
	if diff := cmp.Diff([]string{"two", "one", "four"}, got); diff != "" {
		t.Errorf("ByTags mismatch (-want +got):\n%s", diff)
	}
	if got := c.ByTags([]string{"camping", "solar"}, 2); len(got) != 2 {
		t.Errorf("expected limit 2, got %d", len(got))
	}
}

func TestCategoriesAndBreadcrumbs(t *testing.T) {
	c, _ := NewCorpus([]Post{
		{Slug: "a", Title: "A", Category: "power-stations"},
		{Slug: "b", Title: "B", Category: "power-banks"},
		{Slug: "c", Title: "C", Category: "power-stations"},
		{Slug: "d", Title: "D"},
	})

	want := []CategoryCount{
		{Name: "power-banks", Label: "Power Banks", Posts: 1},
		{Name: "power-stations", Label: "Power Stations", Posts: 2},
	}
	if diff := cmp.Diff(want, c.Categories()); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}

	crumbs := c.Breadcrumbs("a")
	wantCrumbs := []Crumb{
		{Label: "Home", URL: "/"},
		{Label: "Power Stations", URL: "/category/power-stations"},
		{Label: "A", URL: "/a"},
	}
	if diff := cmp.Diff(wantCrumbs, crumbs); diff != "" {
		t.Errorf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}
	if len(c.Breadcrumbs("d")) != 2 {
		t.Errorf("expected 2 crumbs for uncategorised post")
	}
	if c.Breadcrumbs("nope") != nil {
		t.Error("expected nil crumbs for unknown slug")
	}
}

func TestCategoryLabelNonASCII(t *testing.T) {
	if got := CategoryLabel("électronique-grand-public"); got != "Électronique Grand Public" {
		t.Errorf("expected %q, got %q", "Électronique Grand Public", got)
	}
}

func TestMerge(t *testing.T) {
	c, _ := NewCorpus([]Post{{Slug: "a"}, {Slug: "b"}})
	merged, added := c.Merge([]Post{{Slug: "b"}, {Slug: "c"}, {Slug: ""}, {Slug: "c"}})
	if added != 1 {
		t.Errorf("expected 1 added post, got %d", added)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, slugs(merged.Posts())); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 2 {
		t.Errorf("expected original corpus untouched, got %d posts", c.Len())
	}
}
