// Package sqlite provides the SQLite implementation of the entry store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/infra/db"
	"feed-relay/internal/repository"
)

// SQLiteのプレースホルダ上限は999
// 参考: https://www.sqlite.org/limits.html#max_variable_number
const maxPlaceholders = 999

// EntryRepo implements the EntryRepository interface using SQLite.
type EntryRepo struct{ db *sql.DB }

// NewEntryRepo creates a new SQLite-backed entry repository.
func NewEntryRepo(db *sql.DB) repository.EntryRepository {
	return &EntryRepo{db: db}
}

// Initialize creates the entries table if it does not exist.
func (repo *EntryRepo) Initialize(ctx context.Context) error {
	if err := db.MigrateUp(ctx, repo.db, db.DialectSQLite); err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}
	return nil
}

// placeholders returns "?,?,...,?" with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ContainsAll checks ids in bulk. Inputs beyond the placeholder limit are
// split into chunks of maxPlaceholders.
func (repo *EntryRepo) ContainsAll(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += maxPlaceholders {
		end := min(start+maxPlaceholders, len(ids))
		chunk := ids[start:end]

		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		query := fmt.Sprintf("SELECT id FROM entries WHERE id IN (%s)", placeholders(len(chunk)))

		if err := repo.collectIDs(ctx, query, args, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (repo *EntryRepo) collectIDs(ctx context.Context, query string, args []interface{}, into map[string]bool) error {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ContainsAll: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("ContainsAll: Scan: %w", err)
		}
		into[id] = true
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("ContainsAll: rows.Err: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts every record in one transaction, skipping existing ids.
func (repo *EntryRepo) InsertIfAbsent(ctx context.Context, records []*entity.StoredRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	const query = `
INSERT INTO entries (id, author, created_at)
VALUES (?, ?, ?)
ON CONFLICT (id) DO NOTHING`

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("InsertIfAbsent: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("InsertIfAbsent: Prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx, rec.ID, rec.Author, rec.CreatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("InsertIfAbsent: Exec %q: %w", rec.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("InsertIfAbsent: Commit: %w", err)
	}
	return inserted, nil
}

// RemoveByAuthor deletes records by author in one transaction. Long author
// lists are deleted in chunks that leave one placeholder for the sentinel.
// Sentinel authors are dropped from the input and excluded again in SQL.
func (repo *EntryRepo) RemoveByAuthor(ctx context.Context, authors []string) (int64, error) {
	names := repository.RemovableAuthors(authors)
	if len(names) == 0 {
		return 0, nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("RemoveByAuthor: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const chunkSize = maxPlaceholders - 1
	var removed int64
	for start := 0; start < len(names); start += chunkSize {
		end := min(start+chunkSize, len(names))
		chunk := names[start:end]

		args := make([]interface{}, 0, len(chunk)+1)
		for _, n := range chunk {
			args = append(args, n)
		}
		args = append(args, entity.AnonymousAuthor)

		query := fmt.Sprintf(
			"DELETE FROM entries WHERE author IN (%s) AND author <> '' AND author <> ?",
			placeholders(len(chunk)))

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("RemoveByAuthor: Exec: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("RemoveByAuthor: Commit: %w", err)
	}
	return removed, nil
}

// Count returns the number of stored entries.
func (repo *EntryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}
