// Package pipeline runs the site audit: it loads the corpus and product
// table, finds product mentions without a usable affiliate entry, optionally
// checks ASINs live, computes linking suggestions and stores a report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/TobiSchelling/gearlinks/internal/amazon"
	"github.com/TobiSchelling/gearlinks/internal/config"
	"github.com/TobiSchelling/gearlinks/internal/content"
	"github.com/TobiSchelling/gearlinks/internal/database"
	"github.com/TobiSchelling/gearlinks/internal/relevance"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full audit run.
type Result struct {
	Steps       []StepResult
	Report      *database.AuditReport
	Suggestions []relevance.Suggestion
	Checks      []amazon.CheckResult
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Options selects the optional parts of an audit.
type Options struct {
	// Live enables feed import and live ASIN checks.
	Live bool
}

// Pipeline orchestrates the audit steps.
type Pipeline struct {
	cfg     *config.Config
	db      *database.DB
	engine  *relevance.Engine
	checker *amazon.Checker

	corpus   *content.Corpus
	products []amazon.Product
	table    amazon.Table
	resolver *amazon.Resolver
	mentions []content.Mention
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		db:      db,
		engine:  relevance.New(relevance.WithSuggestionsPerPost(cfg.Linking.SuggestionsPerPost)),
		checker: amazon.NewChecker(cfg.Affiliate.CheckTimeout, cfg.Affiliate.CheckConcurrency),
	}
}

// WithChecker replaces the live ASIN checker.
func (p *Pipeline) WithChecker(c *amazon.Checker) *Pipeline {
	p.checker = c
	return p
}

// Resolver returns the resolver built by the last run, with dead ASINs
// marked invalid.
func (p *Pipeline) Resolver() *amazon.Resolver {
	return p.resolver
}

// Run executes the audit.
func (p *Pipeline) Run(ctx context.Context, opts Options) *Result {
	r := &Result{}

	// Step 1: Load corpus
	step := p.runLoad(ctx, opts.Live)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 2: Product table
	step = p.runProducts()
	r.Steps = append(r.Steps, step)

	// Step 3: Mentions
	var missing []string
	step, missing = p.runMentions()
	r.Steps = append(r.Steps, step)

	// Step 4: Live ASIN check
	var dead []string
	if opts.Live {
		step, r.Checks, dead = p.runCheck(ctx)
		r.Steps = append(r.Steps, step)
	}

	// Step 5: Suggestions
	step, r.Suggestions = p.runSuggestions()
	r.Steps = append(r.Steps, step)

	// Step 6: Report
	report := database.AuditReport{
		PostCount:       p.corpus.Len(),
		ProductCount:    len(p.products),
		MentionCount:    len(p.mentions),
		MissingProducts: missing,
		DeadASINs:       dead,
		SuggestionCount: len(r.Suggestions),
	}
	step = p.runReport(&report)
	r.Steps = append(r.Steps, step)
	r.Report = &report

	return r
}

// DryRun shows what an audit would work on without network access or writes.
func (p *Pipeline) DryRun(ctx context.Context) *Result {
	r := &Result{}

	corpus, err := content.LoadCorpus(ctx, p.cfg.Site.ContentDir)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Load", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Load",
		Summary: fmt.Sprintf("[dry-run] %d posts in %s, %d feeds configured", corpus.Len(), p.cfg.Site.ContentDir, len(p.cfg.Feeds)),
	})

	products, err := amazon.LoadProducts(p.cfg.Affiliate.ProductsCSV)
	if err != nil && !errors.Is(err, amazon.ErrProductTableMissing) {
		r.Steps = append(r.Steps, StepResult{Name: "Products", Err: err})
	} else {
		table := amazon.BuildTable(products)
		r.Steps = append(r.Steps, StepResult{
			Name:    "Products",
			Summary: fmt.Sprintf("[dry-run] %d products, %d usable table entries", len(products), len(table)),
		})
		r.Steps = append(r.Steps, StepResult{
			Name:    "Check",
			Summary: fmt.Sprintf("[dry-run] Would check %d ASINs", len(amazon.CheckItems(table))),
		})
	}

	mentions := 0
	for _, post := range corpus.Posts() {
		mentions += len(content.ScanProductMentions(post))
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Mentions",
		Summary: fmt.Sprintf("[dry-run] %d product mentions to verify", mentions),
	})

	if latest, _ := p.db.GetLatestAuditReport(); latest != nil && latest.GeneratedAt != nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Report",
			Summary: fmt.Sprintf("[dry-run] Last audit at %s", *latest.GeneratedAt),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Report",
			Summary: "[dry-run] No previous audit",
		})
	}
	return r
}

func (p *Pipeline) runLoad(ctx context.Context, importFeeds bool) StepResult {
	log.Println("Step 1/6: Loading posts...")
	corpus, err := content.LoadCorpus(ctx, p.cfg.Site.ContentDir)
	if err != nil {
		return StepResult{Name: "Load", Err: err}
	}

	imported := 0
	if importFeeds {
		for _, feed := range p.cfg.Feeds {
			posts, err := content.ImportFeed(ctx, feed.URL, feed.Name)
			if err != nil {
				log.Printf("Error importing feed %s: %v", feed.URL, err)
				continue
			}
			var added int
			corpus, added = corpus.Merge(posts)
			imported += added
		}
	}
	p.corpus = corpus
	return StepResult{
		Name:    "Load",
		Summary: fmt.Sprintf("Loaded %d posts (%d from feeds)", corpus.Len(), imported),
	}
}

func (p *Pipeline) runProducts() StepResult {
	log.Println("Step 2/6: Loading product table...")
	products, err := amazon.LoadProducts(p.cfg.Affiliate.ProductsCSV)
	if err != nil {
		p.resolver = amazon.NewResolver(p.cfg.Affiliate.Tag, nil)
		return StepResult{Name: "Products", Err: err}
	}
	p.products = products
	p.table = amazon.BuildTable(products)
	p.resolver = amazon.NewResolver(p.cfg.Affiliate.Tag, p.table)
	stats := amazon.Stats(products)
	return StepResult{
		Name: "Products",
		Summary: fmt.Sprintf("%d products, %d verified, %d need URLs, %d usable",
			stats.Total, stats.Verified, stats.NeedingURLs, p.resolver.Len()),
	}
}

func (p *Pipeline) runMentions() (StepResult, []string) {
	log.Println("Step 3/6: Scanning product mentions...")
	p.mentions = nil
	missingSet := make(map[string]bool)
	for _, post := range p.corpus.Posts() {
		for _, m := range content.ScanProductMentions(post) {
			p.mentions = append(p.mentions, m)
			if m.ASIN != "" {
				continue
			}
			if _, ok := p.resolver.Entry(m.ProductName); !ok {
				missingSet[m.ProductName] = true
			}
		}
	}

	missing := make([]string, 0, len(missingSet))
	for name := range missingSet {
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return StepResult{
		Name:    "Mentions",
		Summary: fmt.Sprintf("%d mentions, %d products without an affiliate entry", len(p.mentions), len(missing)),
	}, missing
}

// checkItems merges the table's ASINs with ASINs hard-coded in posts.
func (p *Pipeline) checkItems() []amazon.CheckItem {
	merged := make(amazon.Table, len(p.table))
	for name, entry := range p.table {
		merged[name] = entry
	}
	for _, m := range p.mentions {
		if _, ok := merged[m.ProductName]; !ok && m.ASIN != "" {
			merged[m.ProductName] = m.ASIN
		}
	}
	return amazon.CheckItems(merged)
}

func (p *Pipeline) runCheck(ctx context.Context) (StepResult, []amazon.CheckResult, []string) {
	log.Println("Step 4/6: Checking ASINs...")
	items := p.checkItems()
	results, err := p.checker.Check(ctx, items)
	if err != nil {
		return StepResult{Name: "Check", Err: err}, results, nil
	}

	var dead []string
	for _, res := range results {
		check := database.ASINCheck{
			ASIN:        res.ASIN,
			ProductName: res.ProductName,
			Status:      string(res.Status),
			StatusCode:  res.StatusCode,
		}
		if res.Detail != "" {
			detail := res.Detail
			check.Detail = &detail
		}
		if _, err := p.db.InsertASINCheck(check); err != nil {
			log.Printf("Error storing check for %s: %v", res.ASIN, err)
		}
		if res.Status == amazon.CheckDead {
			dead = append(dead, res.ASIN)
		}
	}
	amazon.ApplyResults(p.resolver, results)
	sort.Strings(dead)
	return StepResult{
		Name:    "Check",
		Summary: fmt.Sprintf("Checked %d ASINs, %d dead", len(results), len(dead)),
	}, results, dead
}

func (p *Pipeline) runSuggestions() (StepResult, []relevance.Suggestion) {
	log.Println("Step 5/6: Computing linking suggestions...")
	suggestions := p.engine.LinkingSuggestions(p.corpus.Posts(), p.cfg.Linking.MinScore)
	return StepResult{
		Name:    "Suggestions",
		Summary: fmt.Sprintf("%d suggestions at score >= %d", len(suggestions), p.cfg.Linking.MinScore),
	}, suggestions
}

func (p *Pipeline) runReport(report *database.AuditReport) StepResult {
	log.Println("Step 6/6: Storing report...")
	id, err := p.db.InsertAuditReport(*report)
	if err != nil {
		return StepResult{Name: "Report", Err: err}
	}
	report.ID = id
	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Stored audit report #%d", id),
	}
}
