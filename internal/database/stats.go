package database

import "database/sql"

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM stories").Scan(&s.TotalStories); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM stories WHERE status = ?", StatusProcessed,
	).Scan(&s.ProcessedStories); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM daily_digests").Scan(&s.Digests); err != nil {
		return nil, err
	}

	var latest sql.NullString
	if err := db.conn.QueryRow("SELECT MAX(digest_date) FROM daily_digests").Scan(&latest); err != nil {
		return nil, err
	}
	s.LatestDigest = latest.String
	return &s, nil
}
