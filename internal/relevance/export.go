package relevance

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

var suggestionHeader = []string{"Source Post", "Target Post", "Anchor Text", "Link Type", "Relevance Score"}

// ExportSuggestions writes suggestions as CSV with every field quoted.
func ExportSuggestions(w io.Writer, suggestions []Suggestion) error {
	if err := writeQuotedRow(w, suggestionHeader); err != nil {
		return err
	}
	for _, s := range suggestions {
		row := []string{s.SourceSlug, s.TargetSlug, s.AnchorText, string(s.LinkType), strconv.Itoa(s.Score)}
		if err := writeQuotedRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeQuotedRow(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	if _, err := fmt.Fprintln(w, strings.Join(quoted, ",")); err != nil {
		return fmt.Errorf("writing suggestions: %w", err)
	}
	return nil
}
