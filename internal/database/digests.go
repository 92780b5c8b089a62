package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var digestColumns = []string{"id", "digest_date", "story_ids", "status", "created_at", "updated_at"}

// UpsertDigest writes the selection for a date. An existing record for the
// date has its story IDs replaced; otherwise a new ready record is inserted.
// created reports which of the two happened.
func (db *DB) UpsertDigest(date string, storyIDs []string) (created bool, err error) {
	if storyIDs == nil {
		storyIDs = []string{}
	}
	encoded, err := json.Marshal(storyIDs)
	if err != nil {
		return false, fmt.Errorf("encoding story ids: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("begin digest upsert: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = sq.Select("id").From("daily_digests").Where(sq.Eq{"digest_date": date}).
		RunWith(tx).QueryRow().Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		_, err = sq.Insert("daily_digests").
			Columns("digest_date", "story_ids", "status").
			Values(date, string(encoded), DigestReady).
			RunWith(tx).Exec()
		if err != nil {
			return false, fmt.Errorf("inserting digest: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("looking up digest: %w", err)
	default:
		_, err = sq.Update("daily_digests").
			Set("story_ids", string(encoded)).
			Set("updated_at", sq.Expr("datetime('now')")).
			Where(sq.Eq{"id": id}).
			RunWith(tx).Exec()
		if err != nil {
			return false, fmt.Errorf("updating digest: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit digest upsert: %w", err)
	}
	return created, nil
}

// GetDigest returns the digest for a date, or nil if none exists.
func (db *DB) GetDigest(date string) (*DigestRecord, error) {
	rows, err := sq.Select(digestColumns...).From("daily_digests").
		Where(sq.Eq{"digest_date": date}).
		RunWith(db.conn).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	digests, err := scanDigests(rows)
	if err != nil {
		return nil, err
	}
	if len(digests) == 0 {
		return nil, nil
	}
	return &digests[0], nil
}

// GetDigestsSince returns digests dated on or after since (YYYY-MM-DD),
// newest first.
func (db *DB) GetDigestsSince(since string) ([]DigestRecord, error) {
	rows, err := sq.Select(digestColumns...).From("daily_digests").
		Where(sq.GtOrEq{"digest_date": since}).
		OrderBy("digest_date DESC").
		RunWith(db.conn).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDigests(rows)
}

// GetRecentDigests returns up to limit digests, newest first.
func (db *DB) GetRecentDigests(limit int) ([]DigestRecord, error) {
	rows, err := sq.Select(digestColumns...).From("daily_digests").
		OrderBy("digest_date DESC").
		Limit(uint64(limit)).
		RunWith(db.conn).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDigests(rows)
}

func scanDigests(rows *sql.Rows) ([]DigestRecord, error) {
	var digests []DigestRecord
	for rows.Next() {
		var d DigestRecord
		var ids string
		if err := rows.Scan(&d.ID, &d.DigestDate, &ids, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ids), &d.StoryIDs); err != nil {
			return nil, fmt.Errorf("decoding story ids for %s: %w", d.DigestDate, err)
		}
		digests = append(digests, d)
	}
	return digests, rows.Err()
}
