package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/gearlinks/internal/amazon"
	"github.com/TobiSchelling/gearlinks/internal/content"
	"github.com/TobiSchelling/gearlinks/internal/database"
	"github.com/TobiSchelling/gearlinks/internal/relevance"
	"github.com/TobiSchelling/gearlinks/internal/scheduler"
	"github.com/TobiSchelling/gearlinks/internal/server"
	"github.com/TobiSchelling/gearlinks/internal/tracking"
)

// loadCorpus loads the content directory and, if asked, merges the
// configured feeds. Feed failures are logged and skipped.
func loadCorpus(ctx context.Context, withFeeds bool) (*content.Corpus, error) {
	corpus, err := content.LoadCorpus(ctx, cfg.Site.ContentDir)
	if err != nil {
		return nil, err
	}
	if !withFeeds {
		return corpus, nil
	}
	for _, feed := range cfg.Feeds {
		posts, err := content.ImportFeed(ctx, feed.URL, feed.Name)
		if err != nil {
			log.Printf("Error importing feed %s: %v", feed.URL, err)
			continue
		}
		var added int
		corpus, added = corpus.Merge(posts)
		log.Printf("Imported %d posts from %s", added, feed.URL)
	}
	return corpus, nil
}

func newEngine() *relevance.Engine {
	return relevance.New(relevance.WithSuggestionsPerPost(cfg.Linking.SuggestionsPerPost))
}

// --- serve command ---

var (
	servePort  int
	serveFeeds bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the site server with scheduled maintenance jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		corpus, err := loadCorpus(ctx, serveFeeds)
		if err != nil {
			return err
		}
		resolver, _, err := loadResolver(db)
		if err != nil {
			return err
		}
		tracker := newTracker(db)
		defer tracker.Wait()

		sched := scheduler.New()
		if err := registerJobs(sched, db, resolver, tracker); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		srv, err := server.New(cfg, server.Deps{
			Corpus:   corpus,
			Engine:   newEngine(),
			Resolver: resolver,
			Tracker:  tracker,
		})
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Serving %d posts at http://localhost:%d\n", corpus.Len(), port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.ListenAndServe(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on (overrides config)")
	serveCmd.Flags().BoolVar(&serveFeeds, "feeds", false, "Import configured feeds into the corpus at startup")
}

// registerJobs schedules the click-log prune and, when configured, the live
// ASIN re-check.
func registerJobs(s *scheduler.Scheduler, db *database.DB, resolver *amazon.Resolver, tracker *tracking.Tracker) error {
	if spec := cfg.Schedule.Prune; spec != "" {
		err := s.Add(spec, "prune-clicks", func() {
			if _, err := tracker.Prune(cfg.Tracking.RetentionDays); err != nil {
				log.Printf("Error pruning clicks: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	if spec := cfg.Schedule.ASINCheck; spec != "" {
		checker := amazon.NewChecker(cfg.Affiliate.CheckTimeout, cfg.Affiliate.CheckConcurrency)
		err := s.Add(spec, "asin-check", func() {
			products, err := amazon.LoadProducts(cfg.Affiliate.ProductsCSV)
			if err != nil {
				log.Printf("Error loading products for check: %v", err)
				return
			}
			runCheck(context.Background(), db, checker, resolver, amazon.CheckItems(amazon.BuildTable(products)))
		})
		if err != nil {
			return err
		}
	}

	if len(s.Jobs()) > 0 {
		log.Printf("Scheduled jobs: %s", strings.Join(s.Jobs(), ", "))
	}
	return nil
}

// --- related command ---

var relatedLimit int

var relatedCmd = &cobra.Command{
	Use:   "related [slug]",
	Short: "List the posts most related to a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		corpus, err := loadCorpus(cmd.Context(), false)
		if err != nil {
			return err
		}
		if _, err := corpus.Get(args[0]); err != nil {
			return err
		}

		limit := cfg.Linking.RelatedLimit
		if cmd.Flags().Changed("limit") {
			limit = relatedLimit
		}
		scored := newEngine().RelatedScored(corpus.Posts(), args[0], limit)
		if len(scored) == 0 {
			fmt.Println("No related posts.")
			return nil
		}
		for i, s := range scored {
			fmt.Printf("  %d. [%3d] %s (%s)\n", i+1, s.Score, s.Post.Title, s.Post.Slug)
		}
		return nil
	},
}

func init() {
	relatedCmd.Flags().IntVarP(&relatedLimit, "limit", "n", 3, "Number of related posts (overrides config)")
}

// --- suggest command ---

var (
	suggestMinScore int
	suggestCSV      string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest internal links across the corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		corpus, err := loadCorpus(cmd.Context(), false)
		if err != nil {
			return err
		}

		minScore := cfg.Linking.MinScore
		if cmd.Flags().Changed("min-score") {
			minScore = suggestMinScore
		}
		suggestions := newEngine().LinkingSuggestions(corpus.Posts(), minScore)

		if suggestCSV != "" {
			return writeOutput(suggestCSV, func(w io.Writer) error {
				return relevance.ExportSuggestions(w, suggestions)
			})
		}

		if len(suggestions) == 0 {
			fmt.Printf("No suggestions at score >= %d.\n", minScore)
			return nil
		}
		for _, s := range suggestions {
			fmt.Printf("[%3d] %-10s %s -> %s\n      %q\n", s.Score, s.LinkType, s.SourceSlug, s.TargetSlug, s.AnchorText)
		}
		fmt.Printf("\n%d suggestions\n", len(suggestions))
		return nil
	},
}

func init() {
	suggestCmd.Flags().IntVar(&suggestMinScore, "min-score", 20, "Minimum relevance score (overrides config)")
	suggestCmd.Flags().StringVar(&suggestCSV, "csv", "", "Write suggestions as CSV to this file ('-' for stdout)")
}

// writeOutput runs write against path, or stdout when path is "-".
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// --- link command ---

var linkWrite bool

var linkCmd = &cobra.Command{
	Use:   "link [file]",
	Short: "Insert internal links to other posts into a post body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading post: %w", err)
		}
		post, err := content.ParsePost(path, data)
		if err != nil {
			return err
		}
		corpus, err := loadCorpus(cmd.Context(), false)
		if err != nil {
			return err
		}

		linked := newEngine().AutoLink(corpus.Posts(), post.Body, post.Slug)
		if linked == post.Body {
			fmt.Println("No new links.")
			return nil
		}
		if !linkWrite {
			fmt.Print(linked)
			return nil
		}

		normalized := strings.ReplaceAll(string(data), "\r\n", "\n")
		head := strings.TrimSuffix(normalized, post.Body)
		if err := os.WriteFile(path, []byte(head+linked), 0o644); err != nil {
			return fmt.Errorf("writing post: %w", err)
		}
		fmt.Printf("Updated %s\n", path)
		return nil
	},
}

func init() {
	linkCmd.Flags().BoolVarP(&linkWrite, "write", "w", false, "Write the linked body back to the file")
}
