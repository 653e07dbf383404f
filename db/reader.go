package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedreader/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

// GetEntries returns the cached entries of a feed in feed order. A limit of
// zero or less returns all of them.
func (db *DB) GetEntries(ctx context.Context, feedURL string, limit int) ([]models.Entry, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("guid", "title", "link", "snippet", "language", "published_at").
		From("entries").
		Where(sb.Equal("feed_url", feedURL)).
		OrderBy("position").Asc()
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		entry := models.Entry{FeedURL: feedURL}
		var published sql.NullInt64
		if err := rows.Scan(&entry.GUID, &entry.Title, &entry.Link, &entry.Snippet, &entry.Language, &published); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if published.Valid {
			entry.Published = time.Unix(published.Int64, 0).UTC()
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// CountEntries returns the number of cached entries per feed url
func (db *DB) CountEntries(ctx context.Context) (map[string]int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("feed_url", "COUNT(*)").From("entries").GroupBy("feed_url")

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var url string
		var count int
		if err := rows.Scan(&url, &count); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		counts[url] = count
	}
	return counts, rows.Err()
}
