package db

import (
	"context"
	"fmt"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes entries fetched longer than olderThan ago and returns how many were removed
func (db *DB) Tidy(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	deleteEntries := sb.SQLite.NewDeleteBuilder()
	query, args := deleteEntries.DeleteFrom("entries").Where(deleteEntries.LessThan("fetched_at", cutoff)).Build()

	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Info("Tidying database")

	res, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("tidy error: %w", err)
	}
	return res.RowsAffected()
}
