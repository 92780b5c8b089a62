package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// sqliteTimestamp matches the format produced by datetime('now').
const sqliteTimestamp = "2006-01-02 15:04:05"

var storyColumns = []string{
	"id", "url", "title", "source", "source_domain", "raw_content", "summary", "topics",
	"trust_score", "relevance_score", "published_at", "status", "created_at",
}

// InsertStory stores a classified story and returns its ID.
// A fresh UUID is assigned when s.ID is empty; Status defaults to processed.
func (db *DB) InsertStory(s Story) (string, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = StatusProcessed
	}
	topics, err := json.Marshal(s.Topics)
	if err != nil {
		return "", fmt.Errorf("encoding topics: %w", err)
	}

	_, err = sq.Insert("stories").
		Columns("id", "url", "title", "source", "source_domain", "raw_content", "summary",
			"topics", "trust_score", "relevance_score", "published_at", "status").
		Values(s.ID, s.URL, s.Title, s.Source, s.SourceDomain, s.RawContent, s.Summary,
			string(topics), s.TrustScore, s.RelevanceScore, s.PublishedAt, s.Status).
		RunWith(db.conn).
		Exec()
	if err != nil {
		return "", fmt.Errorf("inserting story: %w", err)
	}
	return s.ID, nil
}

// StoryURLExists reports whether a story with the given URL is already stored.
func (db *DB) StoryURLExists(url string) (bool, error) {
	var count int
	err := sq.Select("COUNT(*)").From("stories").Where(sq.Eq{"url": url}).
		RunWith(db.conn).QueryRow().Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCandidateStories returns stories with the given status created at or after
// since, excluding the given IDs, ordered by relevance_score DESC. Equal scores
// keep insertion order.
func (db *DB) GetCandidateStories(status string, since time.Time, exclude []string) ([]Story, error) {
	q := sq.Select(storyColumns...).From("stories").
		Where(sq.Eq{"status": status}).
		Where(sq.GtOrEq{"created_at": since.UTC().Format(sqliteTimestamp)})
	if len(exclude) > 0 {
		q = q.Where(sq.NotEq{"id": exclude})
	}

	rows, err := q.OrderBy("relevance_score DESC", "rowid ASC").RunWith(db.conn).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// GetStoriesByIDs returns the stories for the given IDs in the order of ids.
// Unknown IDs are skipped.
func (db *DB) GetStoriesByIDs(ids []string) ([]Story, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := sq.Select(storyColumns...).From("stories").Where(sq.Eq{"id": ids}).
		RunWith(db.conn).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found, err := scanStories(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Story, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	ordered := make([]Story, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

// GetStoryByID returns a single story, or nil when it does not exist.
func (db *DB) GetStoryByID(id string) (*Story, error) {
	stories, err := db.GetStoriesByIDs([]string{id})
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, nil
	}
	return &stories[0], nil
}

func scanStories(rows *sql.Rows) ([]Story, error) {
	var stories []Story
	for rows.Next() {
		var s Story
		var topics string
		if err := rows.Scan(&s.ID, &s.URL, &s.Title, &s.Source, &s.SourceDomain, &s.RawContent,
			&s.Summary, &topics, &s.TrustScore, &s.RelevanceScore, &s.PublishedAt,
			&s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(topics), &s.Topics); err != nil {
			s.Topics = nil
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}
