package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/TobiSchelling/gearlinks/internal/amazon"
	"github.com/TobiSchelling/gearlinks/internal/config"
	"github.com/TobiSchelling/gearlinks/internal/database"
)

const productsCSV = `product_name,affiliate_url,status,article_slug,category,last_updated,notes
Jackery Explorer 300,B000000001,verified,a,power-stations,,
Goal Zero Yeti 400,https://amazon.com/dp/B000000002,verified,a,power-stations,,
Anker PowerCore 10000,pending,pending,b,power-banks,,
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func setup(t *testing.T) (*config.Config, *database.DB) {
	t.Helper()
	dir := t.TempDir()
	contentDir := filepath.Join(dir, "content")
	writeFile(t, filepath.Join(contentDir, "a.mdx"), `---
slug: a
title: Jackery 300 vs Goal Zero 400
category: power-stations
date: 2025-02-01
---
<AmazonButton productName="Jackery Explorer 300" />
<AmazonButton productName="Mystery Gadget" />
`)
	writeFile(t, filepath.Join(contentDir, "b.md"), `---
slug: b
title: Best Power Banks 2025
category: power-banks
date: 2025-01-01
---
<AmazonButton productName="Old Bank" asin="B000000003" />
`)
	writeFile(t, filepath.Join(contentDir, "c.md"), `---
slug: c
title: Jackery 500 Review
category: power-stations
date: 2025-03-01
---
Body.
`)
	csvPath := filepath.Join(dir, "affiliate-products.csv")
	writeFile(t, csvPath, productsCSV)

	cfg := config.Default()
	cfg.Site.ContentDir = contentDir
	cfg.Affiliate.ProductsCSV = csvPath
	cfg.Feeds = nil

	db, err := database.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return cfg, db
}

func testChecker(t *testing.T) *amazon.Checker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "B000000002") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><head><title>Product</title></head><body><p>In stock.</p></body></html>`))
	}))
	t.Cleanup(srv.Close)
	c := amazon.NewChecker(time.Second, 2)
	c.BaseURL = srv.URL
	return c
}

func TestRunOffline(t *testing.T) {
	cfg, db := setup(t)
	p := New(cfg, db)

	r := p.Run(context.Background(), Options{})
	if r.Failed() {
		t.Fatalf("expected no failed steps, got %+v", r.Steps)
	}

	var names []string
	for _, s := range r.Steps {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"Load", "Products", "Mentions", "Suggestions", "Report"}, names); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}

	if r.Report.PostCount != 3 || r.Report.ProductCount != 3 || r.Report.MentionCount != 3 {
		t.Errorf("unexpected report counts %+v", r.Report)
	}
	if diff := cmp.Diff([]string{"Mystery Gadget"}, r.Report.MissingProducts); diff != "" {
		t.Errorf("missing products mismatch (-want +got):\n%s", diff)
	}
	if r.Report.SuggestionCount != 2 {
		t.Errorf("expected 2 suggestions, got %d", r.Report.SuggestionCount)
	}

	stored, err := db.GetLatestAuditReport()
	if err != nil || stored == nil {
		t.Fatalf("expected stored report, got %v (%v)", stored, err)
	}
	if stored.ID != r.Report.ID {
		t.Errorf("expected stored report #%d, got #%d", r.Report.ID, stored.ID)
	}
}

func TestRunLive(t *testing.T) {
	cfg, db := setup(t)
	p := New(cfg, db).WithChecker(testChecker(t))

	r := p.Run(context.Background(), Options{Live: true})
	if r.Failed() {
		t.Fatalf("expected no failed steps, got %+v", r.Steps)
	}
	if len(r.Checks) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(r.Checks))
	}
	if diff := cmp.Diff([]string{"B000000002"}, r.Report.DeadASINs); diff != "" {
		t.Errorf("dead ASINs mismatch (-want +got):\n%s", diff)
	}
	if !p.Resolver().IsInvalid("B000000002") {
		t.Error("expected dead ASIN to be marked invalid")
	}

	dead, err := db.GetDeadASINs()
	if err != nil {
		t.Fatalf("GetDeadASINs: %v", err)
	}
	if diff := cmp.Diff([]string{"B000000002"}, dead); diff != "" {
		t.Errorf("stored dead ASINs mismatch (-want +got):\n%s", diff)
	}
}

func TestRunMissingProductTable(t *testing.T) {
	cfg, db := setup(t)
	cfg.Affiliate.ProductsCSV = filepath.Join(t.TempDir(), "missing.csv")

	r := New(cfg, db).Run(context.Background(), Options{})
	if !r.Failed() {
		t.Error("expected the products step to fail")
	}
	if r.Report == nil || r.Report.PostCount != 3 {
		t.Errorf("expected the audit to continue, got %+v", r.Report)
	}
	if n := len(r.Report.MissingProducts); n != 2 {
		t.Errorf("expected every mention without an ASIN to be missing, got %v", r.Report.MissingProducts)
	}
}

func TestDryRun(t *testing.T) {
	cfg, db := setup(t)
	r := New(cfg, db).DryRun(context.Background())
	if r.Failed() {
		t.Fatalf("expected no failed steps, got %+v", r.Steps)
	}
	for _, s := range r.Steps {
		if !strings.HasPrefix(s.Summary, "[dry-run]") {
			t.Errorf("expected dry-run summary, got %q", s.Summary)
		}
	}
	if reports, _ := db.GetAuditReports(10); len(reports) != 0 {
		t.Errorf("expected dry run not to store reports, got %d", len(reports))
	}
}
