// Package amazon turns product names into Amazon affiliate URLs and keeps
// the product table they are resolved against honest.
package amazon

import (
	"log"
	"sort"
	"strings"
	"sync"
)

// Table maps a product name to a full https URL or a bare ASIN.
type Table map[string]string

// Resolver resolves product names against a read-only table. ASINs found to
// be dead can be marked invalid for the lifetime of the resolver; the table
// itself is never modified.
type Resolver struct {
	tag   string
	table Table

	mu      sync.RWMutex
	invalid map[string]struct{}
}

// NewResolver creates a resolver. An empty tag falls back to DefaultTag.
func NewResolver(tag string, table Table) *Resolver {
	if tag == "" {
		tag = DefaultTag
	}
	if table == nil {
		table = Table{}
	}
	return &Resolver{tag: tag, table: table, invalid: make(map[string]struct{})}
}

// Tag returns the affiliate tag.
func (r *Resolver) Tag() string {
	return r.tag
}

// Len returns the number of table entries.
func (r *Resolver) Len() int {
	return len(r.table)
}

// Entry returns the raw table entry for name.
func (r *Resolver) Entry(name string) (string, bool) {
	v, ok := r.table[name]
	return v, ok
}

// Resolve returns the best purchasable URL for productName. It always
// returns a usable URL and never touches the network.
func (r *Resolver) Resolve(productName string) string {
	if strings.TrimSpace(productName) == "" {
		log.Printf("Empty product name, linking to Amazon home")
		return HomeURL(r.tag)
	}

	entry, ok := r.table[productName]
	if !ok {
		log.Printf("No affiliate entry for %q, using search link", productName)
		return SearchURL(productName, r.tag)
	}

	switch {
	case strings.HasPrefix(entry, "https://"):
		return entry
	case IsValidASIN(entry):
		if r.IsInvalid(entry) {
			return SearchURL(productName, r.tag)
		}
		return ProductURL(entry, r.tag)
	default:
		return SearchURL(productName, r.tag)
	}
}

// MarkInvalid records asin as dead so Resolve stops linking to it.
func (r *Resolver) MarkInvalid(asin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid[asin] = struct{}{}
}

// IsInvalid reports whether asin was marked invalid.
func (r *Resolver) IsInvalid(asin string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.invalid[asin]
	return ok
}

// Invalid returns the ASINs marked invalid, sorted.
func (r *Resolver) Invalid() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.invalid))
	for asin := range r.invalid {
		out = append(out, asin)
	}
	sort.Strings(out)
	return out
}

// MarkValid drops a previous invalid mark for asin.
func (r *Resolver) MarkValid(asin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invalid, asin)
}
