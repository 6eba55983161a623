// Package tracking records affiliate clicks in a bounded log and reports on
// them.
package tracking

import "time"

// StorageKey is the fixed key the click log is persisted under.
const StorageKey = "affiliate_clicks"

// DefaultMaxClicks bounds the log. Older clicks are dropped first.
const DefaultMaxClicks = 1000

// Click is one recorded affiliate click.
type Click struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ProductName  string    `json:"productName"`
	ProductID    string    `json:"productId,omitempty"`
	AffiliateURL string    `json:"affiliateUrl"`
	Source       string    `json:"source"`
	Category     string    `json:"category"`
	Price        string    `json:"price,omitempty"`
	UserAgent    string    `json:"userAgent"`
	Referrer     string    `json:"referrer"`
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId,omitempty"`
}

// ClickInput is what a caller knows about a click before it is recorded.
type ClickInput struct {
	ProductName  string
	ProductID    string
	AffiliateURL string
	Source       string
	Category     string
	Price        string
	UserAgent    string
	Referrer     string
	// SessionID falls back to the tracker's own session when empty.
	SessionID string
	UserID    string
}

// Store persists the raw click log.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// MemoryStore keeps the log in memory.
type MemoryStore struct {
	Data []byte
}

func (m *MemoryStore) Load() ([]byte, error) { return m.Data, nil }

func (m *MemoryStore) Save(data []byte) error {
	m.Data = append([]byte(nil), data...)
	return nil
}
