package database

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM kv_store", &s.StoredKeys},
		{"SELECT COUNT(*) FROM asin_checks", &s.ASINChecks},
		{"SELECT COUNT(*) FROM audit_reports", &s.AuditReports},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	dead, err := db.GetDeadASINs()
	if err != nil {
		return nil, err
	}
	s.DeadASINs = len(dead)

	latest, err := db.GetLatestAuditReport()
	if err != nil {
		return nil, err
	}
	if latest != nil {
		s.LastAuditAt = latest.GeneratedAt
	}
	return s, nil
}
