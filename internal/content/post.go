// Package content loads the post corpus: MDX/Markdown files with YAML front
// matter, plus posts imported from RSS/Atom feeds.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"
)

// ErrPostNotFound is returned when a slug is not part of the corpus.
var ErrPostNotFound = errors.New("post not found")

// Post is a single article. Slug is unique across a corpus; every other field
// may be empty.
type Post struct {
	Slug                string
	Title               string
	Description         string
	Date                time.Time
	Updated             time.Time
	Author              string
	Keywords            string
	FeaturedImage       string
	Category            string
	Tags                []string
	AffiliateDisclosure bool
	Body                string
	Path                string
}

type frontMatter struct {
	Slug                string   `yaml:"slug"`
	Title               string   `yaml:"title"`
	Description         string   `yaml:"description"`
	Date                string   `yaml:"date"`
	Updated             string   `yaml:"updated"`
	Author              string   `yaml:"author"`
	Keywords            string   `yaml:"keywords"`
	FeaturedImage       string   `yaml:"featured_image"`
	Category            string   `yaml:"category"`
	Tags                []string `yaml:"tags"`
	AffiliateDisclosure bool     `yaml:"affiliate_disclosure"`
}

var fence = []byte("---")

// ParsePost splits data into YAML front matter and body. Files without front
// matter are accepted; their slug comes from the file name.
func ParsePost(path string, data []byte) (Post, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	var fm frontMatter
	body := data
	if bytes.HasPrefix(data, []byte("---\n")) {
		rest := data[len("---\n"):]
		var raw []byte
		if bytes.HasPrefix(rest, fence) {
			body = rest
		} else {
			end := bytes.Index(rest, []byte("\n---"))
			if end < 0 {
				return Post{}, fmt.Errorf("%s: unterminated front matter", path)
			}
			raw = rest[:end]
			body = rest[end+1:]
		}
		if err := yaml.Unmarshal(raw, &fm); err != nil {
			return Post{}, fmt.Errorf("%s: parsing front matter: %w", path, err)
		}
		// drop the closing fence line
		if i := bytes.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		} else {
			body = nil
		}
	}

	slug := strings.TrimSpace(fm.Slug)
	if slug == "" {
		base := filepath.Base(path)
		slug = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return Post{
		Slug:                slug,
		Title:               strings.TrimSpace(fm.Title),
		Description:         strings.TrimSpace(fm.Description),
		Date:                parseDate(path, fm.Date),
		Updated:             parseDate(path, fm.Updated),
		Author:              fm.Author,
		Keywords:            fm.Keywords,
		FeaturedImage:       fm.FeaturedImage,
		Category:            strings.TrimSpace(fm.Category),
		Tags:                fm.Tags,
		AffiliateDisclosure: fm.AffiliateDisclosure,
		Body:                string(body),
		Path:                path,
	}, nil
}

func parseDate(path, s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		log.Printf("Ignoring unparseable date %q in %s", s, path)
		return time.Time{}
	}
	return t
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// HumanizeCategory turns "power-stations" into "power stations".
func HumanizeCategory(category string) string {
	return strings.ReplaceAll(category, "-", " ")
}
