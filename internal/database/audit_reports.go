package database

import (
	"database/sql"
	"encoding/json"
)

// InsertAuditReport stores an audit summary.
func (db *DB) InsertAuditReport(r AuditReport) (int64, error) {
	missing, err := json.Marshal(nonNil(r.MissingProducts))
	if err != nil {
		return 0, err
	}
	dead, err := json.Marshal(nonNil(r.DeadASINs))
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO audit_reports
		(post_count, product_count, mention_count, missing_products, dead_asins, suggestion_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.PostCount, r.ProductCount, r.MentionCount, string(missing), string(dead), r.SuggestionCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLatestAuditReport returns the newest audit report, or nil if none exist.
func (db *DB) GetLatestAuditReport() (*AuditReport, error) {
	reports, err := db.GetAuditReports(1)
	if err != nil || len(reports) == 0 {
		return nil, err
	}
	return &reports[0], nil
}

// GetAuditReports returns up to limit reports, newest first.
func (db *DB) GetAuditReports(limit int) ([]AuditReport, error) {
	rows, err := db.conn.Query(
		`SELECT id, generated_at, post_count, product_count, mention_count,
		missing_products, dead_asins, suggestion_count
		FROM audit_reports ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []AuditReport
	for rows.Next() {
		var r AuditReport
		var missing, dead sql.NullString
		if err := rows.Scan(&r.ID, &r.GeneratedAt, &r.PostCount, &r.ProductCount, &r.MentionCount,
			&missing, &dead, &r.SuggestionCount); err != nil {
			return nil, err
		}
		r.MissingProducts = decodeList(missing)
		r.DeadASINs = decodeList(dead)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func decodeList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
