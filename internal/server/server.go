// Package server renders the site and handles affiliate redirects.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/TobiSchelling/gearlinks/internal/amazon"
	"github.com/TobiSchelling/gearlinks/internal/config"
	"github.com/TobiSchelling/gearlinks/internal/content"
	"github.com/TobiSchelling/gearlinks/internal/relevance"
	"github.com/TobiSchelling/gearlinks/internal/tracking"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Post bodies carry the links inserted by AutoLink as raw HTML.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

const defaultStatsDays = 30

// Deps are the components the server reads from and records to.
type Deps struct {
	Corpus   *content.Corpus
	Engine   *relevance.Engine
	Resolver *amazon.Resolver
	Tracker  *tracking.Tracker
}

// Server is the HTTP server for the site.
type Server struct {
	cfg      *config.Config
	corpus   *content.Corpus
	engine   *relevance.Engine
	resolver *amazon.Resolver
	tracker  *tracking.Tracker
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Corpus == nil || deps.Resolver == nil || deps.Tracker == nil {
		return nil, errors.New("server needs a corpus, a resolver and a tracker")
	}
	if deps.Engine == nil {
		deps.Engine = relevance.New()
	}

	funcMap := template.FuncMap{
		"markdown":      renderMarkdown,
		"categoryLabel": content.CategoryLabel,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("January 2, 2006")
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "post.html", "category.html", "categories.html", "stats.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		cfg:      cfg,
		corpus:   deps.Corpus,
		engine:   deps.Engine,
		resolver: deps.Resolver,
		tracker:  deps.Tracker,
		pages:    pages,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndexOrPost)
	s.mux.HandleFunc("/categories", s.handleCategories)
	s.mux.HandleFunc("/category/", s.handleCategory)
	s.mux.HandleFunc("/go/", s.handleGo)
	s.mux.HandleFunc("/affiliate/redirect", s.handleRedirect)
	s.mux.HandleFunc("/affiliate/stats", s.handleStats)
	s.mux.HandleFunc("/affiliate/export.csv", s.handleExport)
	s.mux.HandleFunc("/robots.txt", s.handleRobots)
}

func (s *Server) handleIndexOrPost(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		s.render(w, "index.html", map[string]any{
			"Site":       s.cfg.Site,
			"Posts":      s.corpus.Posts(),
			"Categories": s.corpus.Categories(),
		})
		return
	}

	slug := strings.TrimPrefix(r.URL.Path, "/")
	if strings.Contains(slug, "/") {
		http.NotFound(w, r)
		return
	}
	post, ok := s.corpus.BySlug(slug)
	if !ok {
		http.NotFound(w, r)
		return
	}

	posts := s.corpus.Posts()
	body := content.RewriteComponents(post.Body, post.Slug)
	body = s.engine.AutoLink(posts, body, post.Slug)

	related := s.engine.RelatedPosts(posts, post.Slug, s.cfg.Linking.RelatedLimit)
	s.render(w, "post.html", map[string]any{
		"Site":        s.cfg.Site,
		"Post":        post,
		"Body":        body,
		"Breadcrumbs": s.corpus.Breadcrumbs(post.Slug),
		"Related":     related,
		"SameTopics":  s.sameTopics(post, related),
	})
}

// sameTopics lists tag-sharing posts not already shown as related.
func (s *Server) sameTopics(post content.Post, related []content.Post) []content.Post {
	seen := map[string]bool{post.Slug: true}
	for _, p := range related {
		seen[p.Slug] = true
	}
	var out []content.Post
	for _, p := range s.corpus.ByTags(post.Tags, 0) {
		if seen[p.Slug] {
			continue
		}
		out = append(out, p)
		if len(out) == s.cfg.Linking.RelatedLimit {
			break
		}
	}
	return out
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.render(w, "categories.html", map[string]any{
		"Site":       s.cfg.Site,
		"Categories": s.corpus.Categories(),
	})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimPrefix(r.URL.Path, "/category/")
	if category == "" {
		http.Redirect(w, r, "/categories", http.StatusFound)
		return
	}
	posts := s.corpus.ByCategory(category)
	if len(posts) == 0 {
		http.NotFound(w, r)
		return
	}
	s.render(w, "category.html", map[string]any{
		"Site":     s.cfg.Site,
		"Category": category,
		"Label":    content.CategoryLabel(category),
		"Posts":    posts,
	})
}

// handleGo resolves a product name from the path and redirects to it.
func (s *Server) handleGo(w http.ResponseWriter, r *http.Request) {
	product := strings.TrimPrefix(r.URL.Path, "/go/")
	q := r.URL.Query()
	target := s.resolver.Resolve(product)
	s.trackAndRedirect(w, r, target, tracking.ClickInput{
		ProductName:  product,
		AffiliateURL: target,
		Source:       q.Get("source"),
		Category:     q.Get("category"),
		Price:        q.Get("price"),
		ProductID:    amazon.ExtractASIN(target),
	})
}

// handleRedirect sends the visitor to an explicit affiliate URL.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := q.Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing target URL"})
		return
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid target URL"})
		return
	}
	if s.cfg.Debug() && !amazon.IsAffiliateURL(target) {
		log.Printf("Redirect target is not an Amazon affiliate URL: %s", target)
	}
	s.trackAndRedirect(w, r, target, tracking.ClickInput{
		ProductName:  q.Get("product"),
		AffiliateURL: target,
		Source:       q.Get("source"),
		Category:     q.Get("category"),
		Price:        q.Get("price"),
		ProductID:    amazon.ExtractASIN(target),
	})
}

func (s *Server) trackAndRedirect(w http.ResponseWriter, r *http.Request, target string, in tracking.ClickInput) {
	if in.Source == "" {
		in.Source = "unknown"
	}
	in.UserAgent = r.UserAgent()
	in.Referrer = r.Referer()
	in.SessionID = s.session(w, r)

	// Record never fails; storage and analytics problems are only logged.
	s.tracker.Record(r.Context(), in)
	log.Printf("Affiliate click: %s -> %s from %s", in.ProductName, target, in.Source)

	product := in.ProductName
	if product == "" {
		product = "unknown"
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("X-Affiliate-Click", "true")
	w.Header().Set("X-Product", product)
	w.Header().Set("X-Source", in.Source)
	http.Redirect(w, r, target, http.StatusFound)
}

// session returns the visitor's session id, setting the session cookie on
// first use. The cookie has no expiry, so it lasts as long as the browser
// session does.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	name := s.cfg.Tracking.SessionCookie
	if c, err := r.Cookie(name); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

type countRow struct {
	Name  string
	Count int
}

func sortedCounts(m map[string]int) []countRow {
	rows := make([]countRow, 0, len(m))
	for name, n := range m {
		rows = append(rows, countRow{Name: name, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := defaultStatsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		days = n
	}

	stats := s.tracker.Stats(days)
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, stats)
		return
	}
	s.render(w, "stats.html", map[string]any{
		"Site":       s.cfg.Site,
		"Days":       days,
		"Ranges":     []int{7, 30, 90},
		"Stats":      stats,
		"Categories": sortedCounts(stats.ClicksByCategory),
		"Sources":    sortedCounts(stats.ClicksBySource),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("affiliate-clicks-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := s.tracker.Export(w); err != nil {
		log.Printf("Error exporting clicks: %v", err)
	}
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimRight(s.cfg.Site.BaseURL, "/")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\nAllow: /category/\n\nDisallow: /affiliate/\nDisallow: /go/\n\nSitemap: %s/sitemap.xml\n", base)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing JSON: %v", err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// ListenAndServe serves on 127.0.0.1:port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Server listening on http://%s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}
