package content

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"

	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 50

// ImportFeed fetches an RSS/Atom feed and turns its items into posts so they
// can take part in relevance scoring. name becomes the posts' category; when
// empty it is derived from the feed host.
func ImportFeed(ctx context.Context, feedURL, name string) ([]Post, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}
	if name == "" {
		name = sourceName(feedURL)
	}

	posts := FeedPosts(feed, name)
	log.Printf("Imported %d posts from %s", len(posts), name)
	return posts, nil
}

// FeedPosts converts already parsed feed items.
func FeedPosts(feed *gofeed.Feed, name string) []Post {
	category := Slugify(name)
	var posts []Post
	for _, item := range feed.Items {
		if len(posts) >= maxPerFeed {
			break
		}
		if p := parseItem(item, category); p != nil {
			posts = append(posts, *p)
		}
	}
	return posts
}

func parseItem(item *gofeed.Item, category string) *Post {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return nil
	}

	slug := slugFromLink(link)
	if slug == "" {
		slug = Slugify(title)
	}

	p := &Post{
		Slug:        slug,
		Title:       title,
		Description: stripHTML(item.Description),
		Category:    category,
		Tags:        item.Categories,
		Path:        link,
	}
	if item.PublishedParsed != nil {
		p.Date = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		p.Date = *item.UpdatedParsed
	}
	if item.UpdatedParsed != nil {
		p.Updated = *item.UpdatedParsed
	}
	if item.Author != nil {
		p.Author = item.Author.Name
	}
	return p
}

// slugFromLink uses the last path segment of link, without extension.
func slugFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	base := path.Base(strings.TrimSuffix(u.Path, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return Slugify(strings.TrimSuffix(base, path.Ext(base)))
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			result.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	s := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(result.String())
	return strings.Join(strings.Fields(s), " ")
}

func sourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
