package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/gearlinks/internal/amazon"
	"github.com/TobiSchelling/gearlinks/internal/config"
	"github.com/TobiSchelling/gearlinks/internal/database"
	"github.com/TobiSchelling/gearlinks/internal/tracking"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "gearlinks",
	Short:   "Affiliate review site backend",
	Long:    "gearlinks serves a review site, links related posts, resolves products to Amazon affiliate links and tracks clicks.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Debug() {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(clicksCmd)
	rootCmd.AddCommand(auditCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gearlinks", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/gearlinks/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your affiliate tag, content directory and product table.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and site status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		tracker := newTracker(db)

		fmt.Printf("Site: %s (%s)\n", cfg.Site.Name, cfg.Site.BaseURL)
		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Clicks:")
		fmt.Printf("  Logged: %s of %s\n", humanize.Comma(int64(tracker.Len())), humanize.Comma(int64(cfg.Tracking.MaxClicks)))
		fmt.Printf("  Last 7 days: %s\n", humanize.Comma(int64(tracker.Stats(7).TotalClicks)))
		fmt.Println("\nProducts:")
		if products, err := amazon.LoadProducts(cfg.Affiliate.ProductsCSV); err != nil {
			fmt.Printf("  %v\n", err)
		} else {
			ps := amazon.Stats(products)
			fmt.Printf("  Total: %d (%d verified, %d need URLs)\n", ps.Total, ps.Verified, ps.NeedingURLs)
		}
		fmt.Printf("  ASIN checks: %d (%d dead)\n", stats.ASINChecks, stats.DeadASINs)
		fmt.Println("\nAudits:")
		fmt.Printf("  Reports: %d\n", stats.AuditReports)
		if stats.LastAuditAt != nil {
			fmt.Printf("  Last audit: %s\n", humanizeSQLiteTime(*stats.LastAuditAt))
		}
		return nil
	},
}

// humanizeSQLiteTime renders a SQLite datetime('now') value relative to now.
func humanizeSQLiteTime(s string) string {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%s (%s)", humanize.Time(t), s)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "gearlinks.db")
	return database.Open(dbPath)
}

// newTracker opens the click log stored in db.
func newTracker(db *database.DB) *tracking.Tracker {
	opts := []tracking.Option{tracking.WithMaxClicks(cfg.Tracking.MaxClicks)}
	if cfg.Tracking.AnalyticsEndpoint != "" {
		opts = append(opts, tracking.WithSink(&tracking.HTTPSink{Endpoint: cfg.Tracking.AnalyticsEndpoint}, cfg.Tracking.AnalyticsTimeout))
	}
	return tracking.New(db.KVStore(tracking.StorageKey), opts...)
}

// loadResolver builds the resolver from the product table and marks the
// ASINs whose latest live check found them dead. A missing table yields a
// resolver that falls back to search links.
func loadResolver(db *database.DB) (*amazon.Resolver, []amazon.Product, error) {
	products, err := amazon.LoadProducts(cfg.Affiliate.ProductsCSV)
	if err != nil {
		if !errors.Is(err, amazon.ErrProductTableMissing) {
			return nil, nil, err
		}
		log.Printf("Warning: %v; every product will link to search", err)
	}
	r := amazon.NewResolver(cfg.Affiliate.Tag, amazon.BuildTable(products))

	if db != nil {
		dead, err := db.GetDeadASINs()
		if err != nil {
			return nil, nil, fmt.Errorf("loading dead ASINs: %w", err)
		}
		for _, asin := range dead {
			r.MarkInvalid(asin)
		}
		if invalid := r.Invalid(); len(invalid) > 0 {
			log.Printf("Falling back to search for %d dead ASINs: %s", len(invalid), strings.Join(invalid, ", "))
		}
	}
	return r, products, nil
}
