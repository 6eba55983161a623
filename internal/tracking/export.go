package tracking

import (
	"fmt"
	"io"
	"strings"
)

const exportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var exportHeader = []string{
	"timestamp", "product_name", "category", "source", "price",
	"affiliate_url", "user_agent", "referrer", "session_id",
}

// Export writes the whole log as CSV with every field double-quoted.
// Rows are newline separated with no trailing newline.
func (t *Tracker) Export(w io.Writer) error {
	clicks := t.Clicks()

	lines := make([]string, 0, len(clicks)+1)
	lines = append(lines, quoteRow(exportHeader))
	for _, c := range clicks {
		lines = append(lines, quoteRow([]string{
			c.Timestamp.UTC().Format(exportTimeLayout),
			c.ProductName,
			c.Category,
			c.Source,
			c.Price,
			c.AffiliateURL,
			c.UserAgent,
			c.Referrer,
			c.SessionID,
		}))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("exporting clicks: %w", err)
	}
	return nil
}

func quoteRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
