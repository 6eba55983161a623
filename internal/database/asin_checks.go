package database

// InsertASINCheck records the result of a live ASIN lookup.
func (db *DB) InsertASINCheck(c ASINCheck) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO asin_checks (asin, product_name, status, status_code, detail)
		VALUES (?, ?, ?, ?, ?)`,
		c.ASIN, c.ProductName, c.Status, c.StatusCode, c.Detail,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLatestASINChecks returns the most recent check per ASIN, ordered by ASIN.
func (db *DB) GetLatestASINChecks() ([]ASINCheck, error) {
	rows, err := db.conn.Query(`
		SELECT c.id, c.asin, COALESCE(c.product_name, ''), c.status, c.status_code, c.detail, c.checked_at
		FROM asin_checks c
		JOIN (SELECT asin, MAX(id) AS id FROM asin_checks GROUP BY asin) latest
		  ON latest.id = c.id
		ORDER BY c.asin`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []ASINCheck
	for rows.Next() {
		var c ASINCheck
		if err := rows.Scan(&c.ID, &c.ASIN, &c.ProductName, &c.Status, &c.StatusCode, &c.Detail, &c.CheckedAt); err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// GetDeadASINs returns ASINs whose latest check found no product page.
func (db *DB) GetDeadASINs() ([]string, error) {
	checks, err := db.GetLatestASINChecks()
	if err != nil {
		return nil, err
	}
	var dead []string
	for _, c := range checks {
		if c.Status == CheckDead {
			dead = append(dead, c.ASIN)
		}
	}
	return dead, nil
}
