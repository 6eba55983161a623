package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultSinkTimeout = 3 * time.Second

// Tracker owns the click log. All access goes through one mutex, so Record
// and Prune are serialised against Stats, Export and Clicks.
type Tracker struct {
	store       Store
	sink        Sink
	sinkTimeout time.Duration
	now         func() time.Time
	maxClicks   int

	mu      sync.Mutex
	clicks  []Click
	session string

	pending sync.WaitGroup
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSink forwards every recorded click to s.
func WithSink(s Sink, timeout time.Duration) Option {
	return func(t *Tracker) {
		t.sink = s
		if timeout > 0 {
			t.sinkTimeout = timeout
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithMaxClicks changes the log bound.
func WithMaxClicks(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxClicks = n
		}
	}
}

// New creates a tracker and loads the existing log from store. A log that
// cannot be read or decoded is logged and replaced by an empty one.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		sinkTimeout: defaultSinkTimeout,
		now:         time.Now,
		maxClicks:   DefaultMaxClicks,
	}
	for _, opt := range opts {
		opt(t)
	}
	if store == nil {
		t.store = &MemoryStore{}
	}

	clicks, err := t.load()
	if err != nil {
		log.Printf("Click log unreadable, starting empty: %v", err)
	}
	t.clicks = clicks
	if len(t.clicks) > t.maxClicks {
		t.clicks = t.clicks[len(t.clicks)-t.maxClicks:]
	}
	return t
}

func (t *Tracker) load() ([]Click, error) {
	data, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading click log: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var clicks []Click
	if err := json.Unmarshal(data, &clicks); err != nil {
		return nil, fmt.Errorf("decoding click log: %w", err)
	}
	return clicks, nil
}

// persist writes the log. Callers hold t.mu.
func (t *Tracker) persist() error {
	data, err := json.Marshal(t.clicks)
	if err != nil {
		return fmt.Errorf("encoding click log: %w", err)
	}
	if err := t.store.Save(data); err != nil {
		return fmt.Errorf("saving click log: %w", err)
	}
	return nil
}

// Record appends a click and returns it. Persistence and forwarding are best
// effort: failures are logged and the click is returned regardless.
func (t *Tracker) Record(ctx context.Context, in ClickInput) *Click {
	t.mu.Lock()
	session := in.SessionID
	if session == "" {
		session = t.sessionLocked()
	}
	c := Click{
		ID:           uuid.NewString(),
		Timestamp:    t.now().UTC(),
		ProductName:  in.ProductName,
		ProductID:    in.ProductID,
		AffiliateURL: in.AffiliateURL,
		Source:       in.Source,
		Category:     in.Category,
		Price:        in.Price,
		UserAgent:    in.UserAgent,
		Referrer:     in.Referrer,
		SessionID:    session,
		UserID:       in.UserID,
	}
	t.clicks = append(t.clicks, c)
	if over := len(t.clicks) - t.maxClicks; over > 0 {
		t.clicks = append([]Click(nil), t.clicks[over:]...)
	}
	if err := t.persist(); err != nil {
		log.Printf("Click for %q not persisted: %v", c.ProductName, err)
	}
	t.mu.Unlock()

	if t.sink != nil {
		t.pending.Add(1)
		go t.forward(context.WithoutCancel(ctx), c)
	}
	return &c
}

func (t *Tracker) forward(ctx context.Context, c Click) {
	defer t.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Analytics sink panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, t.sinkTimeout)
	defer cancel()
	if err := t.sink.Send(ctx, c); err != nil {
		log.Printf("Error sending click to analytics: %v", err)
	}
}

// Wait blocks until every in-flight analytics send has finished.
func (t *Tracker) Wait() {
	t.pending.Wait()
}

// SessionID returns the tracker's session id, creating it on first use.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionLocked()
}

func (t *Tracker) sessionLocked() string {
	if t.session == "" {
		t.session = uuid.NewString()
	}
	return t.session
}

// Prune drops every click recorded at or before now minus days and persists
// the result. It returns how many clicks were removed.
func (t *Tracker) Prune(days int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-time.Duration(days) * 24 * time.Hour)
	kept := t.clicks[:0:0]
	for _, c := range t.clicks {
		if c.Timestamp.After(cutoff) {
			kept = append(kept, c)
		}
	}
	removed := len(t.clicks) - len(kept)
	t.clicks = kept
	if removed == 0 {
		return 0, nil
	}
	if err := t.persist(); err != nil {
		return removed, err
	}
	log.Printf("Pruned %d clicks older than %d days", removed, days)
	return removed, nil
}

// Clicks returns a copy of the log, oldest first.
func (t *Tracker) Clicks() []Click {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Click(nil), t.clicks...)
}

// Len returns the number of clicks in the log.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clicks)
}
