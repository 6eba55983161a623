package amazon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"
)

// CheckStatus is the outcome of a live ASIN check.
type CheckStatus string

const (
	CheckOK          CheckStatus = "ok"
	CheckDead        CheckStatus = "dead"
	CheckRateLimited CheckStatus = "rate_limited"
	CheckError       CheckStatus = "error"
)

const (
	defaultCheckBase    = "https://www.amazon.com"
	defaultCheckTimeout = 8 * time.Second
	checkUserAgent      = "Mozilla/5.0 (compatible; AffiliateValidator/1.0)"
	maxPageBytes        = 2 << 20
)

// CheckItem is one ASIN to check, with the product it belongs to.
type CheckItem struct {
	ASIN        string
	ProductName string
}

// CheckResult is the outcome for one CheckItem.
type CheckResult struct {
	CheckItem
	Status     CheckStatus
	StatusCode int
	Detail     string
}

// Checker verifies that ASINs still resolve to live product pages.
type Checker struct {
	BaseURL     string
	Concurrency int

	client *http.Client
}

// NewChecker creates a checker with a per-request timeout.
func NewChecker(timeout time.Duration, concurrency int) *Checker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Checker{
		BaseURL:     defaultCheckBase,
		Concurrency: concurrency,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Check checks every item, at most Concurrency at a time. Results keep the
// order of items. Individual failures are reported in the results, so the
// returned error is only ever the context's.
func (c *Checker) Check(ctx context.Context, items []CheckItem) ([]CheckResult, error) {
	results := make([]CheckResult, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.checkOne(ctx, item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	dead := 0
	for _, r := range results {
		if r.Status == CheckDead {
			dead++
		}
	}
	log.Printf("ASIN check complete: %d checked, %d dead", len(results), dead)
	return results, nil
}

func (c *Checker) checkOne(ctx context.Context, item CheckItem) CheckResult {
	res := CheckResult{CheckItem: item}
	if !IsValidASIN(item.ASIN) {
		res.Status = CheckError
		res.Detail = "invalid ASIN format"
		return res
	}

	pageURL := strings.TrimRight(c.BaseURL, "/") + "/dp/" + item.ASIN
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		res.Status = CheckError
		res.Detail = err.Error()
		return res
	}
	req.Header.Set("User-Agent", checkUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		res.Status = CheckError
		res.Detail = err.Error()
		return res
	}
	defer resp.Body.Close()
	res.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		res.Status = CheckDead
		return res
	case resp.StatusCode == http.StatusServiceUnavailable:
		res.Status = CheckRateLimited
		res.Detail = "rate limited, status unknown"
		return res
	default:
		res.Status = CheckError
		res.Detail = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return res
	}

	res.Status = CheckOK
	title := pageTitle(resp.Body, pageURL)
	if strings.Contains(strings.ToLower(title), "page not found") {
		res.Status = CheckDead
		res.Detail = title
	}
	return res
}

var titleTagRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// pageTitle extracts the article title of an HTML page, falling back to the
// raw <title> element when readability cannot make sense of the page.
func pageTitle(body io.Reader, pageURL string) string {
	data, err := io.ReadAll(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return ""
	}
	if u, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(bytes.NewReader(data), u); err == nil {
			if title := strings.TrimSpace(article.Title); title != "" {
				return title
			}
		}
	}
	if m := titleTagRe.FindSubmatch(data); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// ApplyResults marks every dead ASIN invalid on r, revives ASINs that check
// ok, and returns how many were marked invalid.
func ApplyResults(r *Resolver, results []CheckResult) int {
	n := 0
	for _, res := range results {
		switch res.Status {
		case CheckDead:
			r.MarkInvalid(res.ASIN)
			n++
		case CheckOK:
			r.MarkValid(res.ASIN)
		}
	}
	return n
}

// CheckItems lists the table entries that carry an ASIN, either bare or
// inside a /dp/ URL.
func CheckItems(t Table) []CheckItem {
	var items []CheckItem
	for name, entry := range t {
		asin := entry
		if strings.HasPrefix(entry, "https://") {
			asin = ExtractASIN(entry)
		}
		if asin == "" {
			continue
		}
		items = append(items, CheckItem{ASIN: asin, ProductName: name})
	}
	sortItems(items)
	return items
}

func sortItems(items []CheckItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ProductName != items[j].ProductName {
			return items[i].ProductName < items[j].ProductName
		}
		return items[i].ASIN < items[j].ASIN
	})
}
