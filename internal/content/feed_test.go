package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/gofeed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Gadget Reviews</title>
  <item>
    <title>EcoFlow River 2 Review</title>
    <link>https://gadgets.example.com/reviews/ecoflow-river-2-review.html</link>
    <description>&lt;p&gt;A small &lt;b&gt;power station&lt;/b&gt; that charges fast.&lt;/p&gt;</description>
    <category>power stations</category>
    <pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://gadgets.example.com/untitled</link>
  </item>
  <item>
    <title>Best Power Banks 2025</title>
    <link>https://gadgets.example.com/</link>
  </item>
</channel>
</rss>`

func TestFeedPosts(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(sampleRSS)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	posts := FeedPosts(feed, "Gadget Reviews")
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	p := posts[0]
	if p.Slug != "ecoflow-river-2-review" {
		t.Errorf("expected slug from link, got %q", p.Slug)
	}
	if p.Description != "A small power station that charges fast." {
		t.Errorf("expected stripped description, got %q", p.Description)
	}
	if p.Category != "gadget-reviews" {
		t.Errorf("expected category from feed name, got %q", p.Category)
	}
	if len(p.Tags) != 1 || p.Tags[0] != "power stations" {
		t.Errorf("expected item categories as tags, got %v", p.Tags)
	}
	if p.Date.IsZero() {
		t.Error("expected published date")
	}

	// root link has no usable path segment, so the title is slugified
	if posts[1].Slug != "best-power-banks-2025" {
		t.Errorf("expected slug from title, got %q", posts[1].Slug)
	}
}

func TestImportFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	posts, err := ImportFeed(context.Background(), srv.URL+"/feed.xml", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Category == "" {
		t.Error("expected a category derived from the feed host")
	}
}

func TestImportFeedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := ImportFeed(context.Background(), srv.URL, "x"); err == nil {
		t.Error("expected error for failing feed")
	}
}

func TestSourceName(t *testing.T) {
	if got := sourceName("https://www.theverge.com/rss/index.xml"); got != "Theverge" {
		t.Errorf("expected 'Theverge', got %q", got)
	}
}
