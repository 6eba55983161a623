package amazon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestChecker(t *testing.T, handler http.HandlerFunc) *Checker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewChecker(2*time.Second, 2)
	c.BaseURL = srv.URL
	return c
}

func TestCheck(t *testing.T) {
	c := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != checkUserAgent {
			t.Errorf("expected bot user agent, got %q", ua)
		}
		switch r.URL.Path {
		case "/dp/B000000001":
			w.Write([]byte(`<html><head><title>Jackery Explorer 300</title></head><body><article><h1>Jackery Explorer 300</h1><p>Portable power station with a 293Wh battery and a pure sine wave inverter for camping trips.</p></article></body></html>`))
		case "/dp/B000000002":
			http.NotFound(w, r)
		case "/dp/B000000003":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/dp/B000000004":
			w.WriteHeader(http.StatusGone)
		case "/dp/B000000005":
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	items := []CheckItem{
		{ASIN: "B000000001", ProductName: "live"},
		{ASIN: "B000000002", ProductName: "missing"},
		{ASIN: "B000000003", ProductName: "throttled"},
		{ASIN: "B000000004", ProductName: "gone"},
		{ASIN: "B000000005", ProductName: "broken"},
		{ASIN: "bad", ProductName: "malformed"},
	}
	results, err := c.Check(context.Background(), items)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	want := []CheckStatus{CheckOK, CheckDead, CheckRateLimited, CheckDead, CheckError, CheckError}
	for i, res := range results {
		if res.ProductName != items[i].ProductName {
			t.Errorf("result %d: expected product %q, got %q", i, items[i].ProductName, res.ProductName)
		}
		if res.Status != want[i] {
			t.Errorf("%s: expected %s, got %s (%s)", res.ProductName, want[i], res.Status, res.Detail)
		}
	}
}

func TestCheckNotFoundPage(t *testing.T) {
	c := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Page Not Found</title></head><body><h1>Page Not Found</h1><p>Sorry! We couldn't find that page. Try searching or go to Amazon's home page.</p></body></html>`))
	})
	results, err := c.Check(context.Background(), []CheckItem{{ASIN: "B000000009"}})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if results[0].Status != CheckDead {
		t.Errorf("expected dead for not-found page, got %s", results[0].Status)
	}
}

func TestApplyResults(t *testing.T) {
	r := NewResolver("t-20", Table{"Dead": "B000000002", "Live": "B000000001"})
	r.MarkInvalid("B000000001")
	n := ApplyResults(r, []CheckResult{
		{CheckItem: CheckItem{ASIN: "B000000001"}, Status: CheckOK},
		{CheckItem: CheckItem{ASIN: "B000000002"}, Status: CheckDead},
		{CheckItem: CheckItem{ASIN: "B000000003"}, Status: CheckRateLimited},
	})
	if n != 1 {
		t.Errorf("expected 1 marked, got %d", n)
	}
	if !r.IsInvalid("B000000002") || r.IsInvalid("B000000001") || r.IsInvalid("B000000003") {
		t.Errorf("unexpected invalid set %v", r.Invalid())
	}
	if got := r.Resolve("Dead"); got != "https://amazon.com/s?k=Dead&tag=t-20" {
		t.Errorf("expected search URL for dead ASIN, got %q", got)
	}
}
