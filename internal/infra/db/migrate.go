package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema returns the idempotent DDL for the entries table in the given dialect.
func schema(d Dialect) []string {
	createdAt := "TIMESTAMP NOT NULL"
	if d == DialectPostgres {
		createdAt = "TIMESTAMPTZ NOT NULL DEFAULT now()"
	}

	return []string{
		`
CREATE TABLE IF NOT EXISTS entries (
    id         TEXT PRIMARY KEY,
    author     TEXT NOT NULL DEFAULT '',
    created_at ` + createdAt + `
)`,
		// RemoveByAuthor filters on author every cycle
		`CREATE INDEX IF NOT EXISTS idx_entries_author ON entries(author)`,
	}
}

// MigrateUp creates the entries table and its index if they do not exist.
// It never drops or alters existing data.
func MigrateUp(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range schema(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("MigrateUp: %w", err)
		}
	}
	return nil
}
