// Package db caches fetched feed entries in SQLite
package db

import (
	"database/sql"
	"fmt"
)

var entryColumns = []string{"feed_url", "guid", "position", "title", "link", "snippet", "language", "published_at", "fetched_at"}

// DB handles all database operations with a shared connection pool
type DB struct {
	db *sql.DB
}

// Open migrates the database at path and connects to it
func Open(path string) (*DB, error) {
	if err := Migrate(path); err != nil {
		return nil, err
	}

	conn, err := connection(path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return &DB{db: conn}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}
