package amazon

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrProductTableMissing is returned when the product CSV does not exist.
var ErrProductTableMissing = errors.New("product table not found")

// Product statuses used in the CSV.
const (
	StatusVerified = "verified"
	StatusPending  = "pending"
	StatusInactive = "inactive"
)

// Product is one row of the affiliate product CSV.
type Product struct {
	Name         string
	AffiliateURL string
	Status       string
	ArticleSlug  string
	Category     string
	LastUpdated  string
	Notes        string
}

// NeedsURL reports whether the row still has no usable affiliate URL.
func (p Product) NeedsURL() bool {
	return p.AffiliateURL == "" || p.AffiliateURL == StatusPending
}

// LoadProducts reads the product CSV at path.
func LoadProducts(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProductTableMissing, path)
		}
		return nil, fmt.Errorf("opening product table: %w", err)
	}
	defer f.Close()

	products, err := ParseProducts(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return products, nil
}

// ParseProducts reads product rows from CSV. Columns are matched by header
// name, so their order does not matter and unknown columns are ignored.
func ParseProducts(r io.Reader) ([]Product, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var products []Product
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		p := Product{
			Name:         field(rec, "product_name"),
			AffiliateURL: field(rec, "affiliate_url"),
			Status:       field(rec, "status"),
			ArticleSlug:  field(rec, "article_slug"),
			Category:     field(rec, "category"),
			LastUpdated:  field(rec, "last_updated"),
			Notes:        field(rec, "notes"),
		}
		if p.Name == "" {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// BuildTable keeps the verified rows whose URL is a full https URL or an
// ASIN-looking value. Later rows win on duplicate names.
func BuildTable(products []Product) Table {
	t := make(Table)
	for _, p := range products {
		if p.Status != StatusVerified || p.NeedsURL() {
			continue
		}
		if !strings.HasPrefix(p.AffiliateURL, "https://") && !strings.HasPrefix(p.AffiliateURL, "B") {
			continue
		}
		t[p.Name] = p.AffiliateURL
	}
	return t
}

// ProductsNeedingURLs returns rows without a usable URL or still pending.
func ProductsNeedingURLs(products []Product) []Product {
	var out []Product
	for _, p := range products {
		if p.NeedsURL() || p.Status == StatusPending {
			out = append(out, p)
		}
	}
	return out
}

// ProductsByCategory returns the rows in category.
func ProductsByCategory(products []Product, category string) []Product {
	var out []Product
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func Categories(products []Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

// ProductStats summarises a product table.
type ProductStats struct {
	Total       int
	Verified    int
	Pending     int
	NeedingURLs int
	Categories  int
}

// Stats computes ProductStats for products.
func Stats(products []Product) ProductStats {
	s := ProductStats{Total: len(products), Categories: len(Categories(products))}
	for _, p := range products {
		switch p.Status {
		case StatusVerified:
			s.Verified++
		case StatusPending:
			s.Pending++
		}
		if p.NeedsURL() {
			s.NeedingURLs++
		}
	}
	return s
}
