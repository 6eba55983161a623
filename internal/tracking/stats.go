package tracking

import (
	"sort"
	"time"
)

const topProductsLimit = 10

// ProductCount is one entry of Stats.TopProducts.
type ProductCount struct {
	Name     string `json:"name"`
	Clicks   int    `json:"clicks"`
	Category string `json:"category"`
}

// Stats aggregates the click log.
type Stats struct {
	TotalClicks      int            `json:"totalClicks"`
	ClicksByProduct  map[string]int `json:"clicksByProduct"`
	ClicksByCategory map[string]int `json:"clicksByCategory"`
	ClicksBySource   map[string]int `json:"clicksBySource"`
	TopProducts      []ProductCount `json:"topProducts"`
}

// Stats aggregates clicks no older than windowDays. A windowDays of zero or
// less covers the whole log.
func (t *Tracker) Stats(windowDays int) Stats {
	t.mu.Lock()
	clicks := append([]Click(nil), t.clicks...)
	now := t.now()
	t.mu.Unlock()

	if windowDays > 0 {
		window := time.Duration(windowDays) * 24 * time.Hour
		filtered := clicks[:0]
		for _, c := range clicks {
			if now.Sub(c.Timestamp) <= window {
				filtered = append(filtered, c)
			}
		}
		clicks = filtered
	}
	return aggregate(clicks)
}

func aggregate(clicks []Click) Stats {
	s := Stats{
		TotalClicks:      len(clicks),
		ClicksByProduct:  make(map[string]int),
		ClicksByCategory: make(map[string]int),
		ClicksBySource:   make(map[string]int),
	}

	var order []string
	firstCategory := make(map[string]string)
	for _, c := range clicks {
		if _, seen := s.ClicksByProduct[c.ProductName]; !seen {
			order = append(order, c.ProductName)
			firstCategory[c.ProductName] = c.Category
		}
		s.ClicksByProduct[c.ProductName]++
		s.ClicksByCategory[c.Category]++
		s.ClicksBySource[c.Source]++
	}

	top := make([]ProductCount, 0, len(order))
	for _, name := range order {
		category := firstCategory[name]
		if category == "" {
			category = "unknown"
		}
		top = append(top, ProductCount{Name: name, Clicks: s.ClicksByProduct[name], Category: category})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Clicks > top[j].Clicks })
	if len(top) > topProductsLimit {
		top = top[:topProductsLimit]
	}
	s.TopProducts = top
	return s
}
