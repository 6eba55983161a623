package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/gearlinks/internal/pipeline"
)

var (
	auditDryRun bool
	auditLive   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the site: posts -> products -> mentions -> ASIN check -> suggestions -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)

		var result *pipeline.Result
		if auditDryRun {
			result = pipe.DryRun(cmd.Context())
		} else {
			result = pipe.Run(cmd.Context(), pipeline.Options{Live: auditLive})
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if r := result.Report; r != nil && len(r.MissingProducts) > 0 {
			fmt.Println("\nProducts mentioned without an affiliate entry:")
			for _, name := range r.MissingProducts {
				fmt.Printf("  %s\n", name)
			}
		}
		if !auditDryRun {
			fmt.Println("\nAudit complete! Run 'gearlinks suggest' to review linking suggestions.")
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().BoolVar(&auditDryRun, "dry-run", false, "Show what would be done without executing")
	auditCmd.Flags().BoolVar(&auditLive, "live", false, "Import feeds and check ASINs against Amazon")
}
