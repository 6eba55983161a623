package content

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Mention is a product call-to-action component found in a post body.
type Mention struct {
	Slug        string
	Component   string
	ProductName string
	ASIN        string
	Line        int
}

var (
	componentRe = regexp.MustCompile(`<(AmazonButton|ProductLink)\b([^>]*?)(/?)>`)
	attrRe      = regexp.MustCompile(`(\w+)=["']([^"']*)["']`)
)

func attrs(raw string) map[string]string {
	m := make(map[string]string)
	for _, a := range attrRe.FindAllStringSubmatch(raw, -1) {
		m[a[1]] = a[2]
	}
	return m
}

// ScanProductMentions returns every AmazonButton and ProductLink with a
// productName attribute, in body order.
func ScanProductMentions(p Post) []Mention {
	var out []Mention
	for _, loc := range componentRe.FindAllStringSubmatchIndex(p.Body, -1) {
		component := p.Body[loc[2]:loc[3]]
		a := attrs(p.Body[loc[4]:loc[5]])
		name := a["productName"]
		if name == "" {
			continue
		}
		out = append(out, Mention{
			Slug:        p.Slug,
			Component:   component,
			ProductName: name,
			ASIN:        a["asin"],
			Line:        strings.Count(p.Body[:loc[0]], "\n") + 1,
		})
	}
	return out
}

// GoPath is the tracked redirect path for a product CTA on the post slug.
func GoPath(productName, slug string) string {
	q := url.Values{}
	if slug != "" {
		q.Set("source", slug)
	}
	path := "/go/" + url.PathEscape(productName)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return path
}

// RewriteComponents replaces AmazonButton and ProductLink components with plain
// Markdown links to the tracked redirect so the body renders without JSX.
func RewriteComponents(body, slug string) string {
	var b strings.Builder
	last := 0
	for _, loc := range componentRe.FindAllStringSubmatchIndex(body, -1) {
		if loc[0] < last {
			continue
		}
		component := body[loc[2]:loc[3]]
		a := attrs(body[loc[4]:loc[5]])
		selfClosing := loc[7] > loc[6]
		name := a["productName"]
		if name == "" {
			continue
		}

		text := fmt.Sprintf("Check %s price on Amazon", name)
		end := loc[1]
		if component == "ProductLink" {
			text = name
			if !selfClosing {
				closing := strings.Index(body[end:], "</ProductLink>")
				if closing >= 0 {
					if inner := strings.TrimSpace(body[end : end+closing]); inner != "" {
						text = inner
					}
					end += closing + len("</ProductLink>")
				}
			}
		}

		b.WriteString(body[last:loc[0]])
		fmt.Fprintf(&b, "[%s](%s)", text, GoPath(name, slug))
		last = end
	}
	b.WriteString(body[last:])
	return b.String()
}
