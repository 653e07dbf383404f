package db

import (
	"context"
	"fmt"
	"time"

	"feedreader/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// SaveEntries replaces the cached entries of a feed in one transaction
func (db *DB) SaveEntries(ctx context.Context, feedURL string, entries []models.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin error: %w", err)
	}
	defer tx.Rollback()

	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom("entries").Where(del.Equal("feed_url", feedURL))
	query, args := del.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}

	if len(entries) > 0 {
		now := time.Now().Unix()
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertIgnoreInto("entries").Cols(entryColumns...)
		for i, entry := range entries {
			var published interface{}
			if !entry.Published.IsZero() {
				published = entry.Published.Unix()
			}
			ib.Values(feedURL, entry.GUID, i, entry.Title, entry.Link, entry.Snippet, entry.Language, published, now)
		}

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}

	log.WithFields(log.Fields{
		"feed":    feedURL,
		"entries": len(entries),
	}).Debug("Cached entries")
	return nil
}
