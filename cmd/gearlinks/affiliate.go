package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/gearlinks/internal/amazon"
	"github.com/TobiSchelling/gearlinks/internal/database"
)

// --- resolve command ---

var resolveCmd = &cobra.Command{
	Use:   "resolve [product]...",
	Short: "Print the affiliate URL for product names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		resolver, _, err := loadResolver(db)
		if err != nil {
			return err
		}
		for _, name := range args {
			fmt.Printf("%s\t%s\n", name, resolver.Resolve(name))
		}
		return nil
	},
}

// --- products command ---

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Inspect and check the affiliate product table",
}

var productsCategory string

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products in the table",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := amazon.LoadProducts(cfg.Affiliate.ProductsCSV)
		if err != nil {
			return err
		}
		if productsCategory != "" {
			products = amazon.ProductsByCategory(products, productsCategory)
		}
		if len(products) == 0 {
			fmt.Println("No products.")
			return nil
		}
		for _, p := range products {
			url := p.AffiliateURL
			if url == "" {
				url = "-"
			}
			fmt.Printf("  %-9s %-40s %-20s %s\n", p.Status, p.Name, p.Category, url)
		}
		return nil
	},
}

var productsAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Summarise the table and list products that still need URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := amazon.LoadProducts(cfg.Affiliate.ProductsCSV)
		if err != nil {
			return err
		}
		s := amazon.Stats(products)
		fmt.Printf("Products: %d\n", s.Total)
		fmt.Printf("  Verified: %d\n", s.Verified)
		fmt.Printf("  Pending: %d\n", s.Pending)
		fmt.Printf("  Need URLs: %d\n", s.NeedingURLs)
		fmt.Printf("  Categories: %d\n", s.Categories)
		fmt.Printf("  Usable table entries: %d\n", len(amazon.BuildTable(products)))

		needing := amazon.ProductsNeedingURLs(products)
		if len(needing) > 0 {
			fmt.Println("\nNeeding URLs:")
			for _, p := range needing {
				fmt.Printf("  %s (%s, article: %s)\n", p.Name, p.Category, p.ArticleSlug)
			}
		}

		var badFormat []string
		for _, p := range products {
			if p.NeedsURL() || p.Status != amazon.StatusVerified {
				continue
			}
			asin := p.AffiliateURL
			if strings.HasPrefix(asin, "https://") {
				asin = amazon.ExtractASIN(asin)
			}
			if asin != "" && !amazon.IsValidASIN(asin) {
				badFormat = append(badFormat, fmt.Sprintf("%s (%s)", p.Name, p.AffiliateURL))
			}
		}
		if len(badFormat) > 0 {
			fmt.Println("\nMalformed ASINs:")
			for _, b := range badFormat {
				fmt.Printf("  %s\n", b)
			}
		}
		return nil
	},
}

var productsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every ASIN in the table against Amazon",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		resolver, products, err := loadResolver(db)
		if err != nil {
			return err
		}
		items := amazon.CheckItems(amazon.BuildTable(products))
		if len(items) == 0 {
			fmt.Println("No ASINs to check.")
			return nil
		}
		fmt.Printf("Checking %d ASINs (this may take a while)...\n", len(items))

		checker := amazon.NewChecker(cfg.Affiliate.CheckTimeout, cfg.Affiliate.CheckConcurrency)
		results := runCheck(cmd.Context(), db, checker, resolver, items)
		for _, r := range results {
			line := fmt.Sprintf("  %-12s %-10s %s", string(r.Status), r.ASIN, r.ProductName)
			if r.Detail != "" {
				line += " (" + r.Detail + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	productsListCmd.Flags().StringVar(&productsCategory, "category", "", "Only list products in this category")
	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsAuditCmd)
	productsCmd.AddCommand(productsCheckCmd)
}

// runCheck checks items live, stores every result and marks dead ASINs
// invalid on resolver.
func runCheck(ctx context.Context, db *database.DB, checker *amazon.Checker, resolver *amazon.Resolver, items []amazon.CheckItem) []amazon.CheckResult {
	results, err := checker.Check(ctx, items)
	if err != nil {
		log.Printf("ASIN check interrupted: %v", err)
	}
	for _, r := range results {
		if r.ASIN == "" {
			continue
		}
		check := database.ASINCheck{
			ASIN:        r.ASIN,
			ProductName: r.ProductName,
			Status:      string(r.Status),
			StatusCode:  r.StatusCode,
		}
		if r.Detail != "" {
			detail := r.Detail
			check.Detail = &detail
		}
		if _, err := db.InsertASINCheck(check); err != nil {
			log.Printf("Error storing check for %s: %v", r.ASIN, err)
		}
	}
	if n := amazon.ApplyResults(resolver, results); n > 0 {
		log.Printf("Marked %d dead ASINs invalid", n)
	}
	return results
}

// --- clicks command ---

var clicksCmd = &cobra.Command{
	Use:   "clicks",
	Short: "Report on and maintain the affiliate click log",
}

var (
	clicksDays   int
	clicksOutput string
)

var clicksStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show click statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s := newTracker(db).Stats(clicksDays)
		window := "all time"
		if clicksDays > 0 {
			window = fmt.Sprintf("last %d days", clicksDays)
		}
		fmt.Printf("Clicks (%s): %s\n", window, humanize.Comma(int64(s.TotalClicks)))
		if len(s.TopProducts) == 0 {
			return nil
		}
		fmt.Println("\nTop products:")
		for i, p := range s.TopProducts {
			fmt.Printf("  %2d. %-40s %-20s %s\n", i+1, p.Name, p.Category, humanize.Comma(int64(p.Clicks)))
		}
		fmt.Println("\nBy source:")
		for source, n := range s.ClicksBySource {
			fmt.Printf("  %-40s %s\n", source, humanize.Comma(int64(n)))
		}
		return nil
	},
}

var clicksExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the click log as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tracker := newTracker(db)
		return writeOutput(clicksOutput, func(w io.Writer) error {
			if err := tracker.Export(w); err != nil {
				return err
			}
			_, err := io.WriteString(w, "\n")
			return err
		})
	},
}

var clicksPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop clicks older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		days := cfg.Tracking.RetentionDays
		if cmd.Flags().Changed("days") {
			days = clicksDays
		}
		removed, err := newTracker(db).Prune(days)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %s clicks older than %d days\n", humanize.Comma(int64(removed)), days)
		return nil
	},
}

func init() {
	clicksStatsCmd.Flags().IntVarP(&clicksDays, "days", "d", 30, "Window in days (0 for all time)")
	clicksExportCmd.Flags().StringVarP(&clicksOutput, "output", "o", "-", "Output file ('-' for stdout)")
	clicksPruneCmd.Flags().IntVarP(&clicksDays, "days", "d", 30, "Keep clicks newer than this many days (overrides config)")
	clicksCmd.AddCommand(clicksStatsCmd)
	clicksCmd.AddCommand(clicksExportCmd)
	clicksCmd.AddCommand(clicksPruneCmd)
}
