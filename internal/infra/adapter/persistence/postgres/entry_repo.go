// Package postgres provides the PostgreSQL implementation of the entry store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/infra/db"
	"feed-relay/internal/repository"
)

// EntryRepo implements the EntryRepository interface using PostgreSQL.
type EntryRepo struct{ db *sql.DB }

// NewEntryRepo creates a new PostgreSQL-backed entry repository.
func NewEntryRepo(db *sql.DB) repository.EntryRepository {
	return &EntryRepo{db: db}
}

func (repo *EntryRepo) Initialize(ctx context.Context) error {
	if err := db.MigrateUp(ctx, repo.db, db.DialectPostgres); err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}
	return nil
}

// numbered returns "$from,$from+1,...", n markers in total.
func numbered(from, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", from+i)
	}
	return b.String()
}

func (repo *EntryRepo) ContainsAll(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("SELECT id FROM entries WHERE id IN (%s)", numbered(1, len(ids)))

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ContainsAll: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ContainsAll: Scan: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ContainsAll: rows.Err: %w", err)
	}
	return result, nil
}

func (repo *EntryRepo) InsertIfAbsent(ctx context.Context, records []*entity.StoredRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	const query = `
INSERT INTO entries (id, author, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO NOTHING`

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("InsertIfAbsent: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var inserted int64
	for _, rec := range records {
		res, err := tx.ExecContext(ctx, query, rec.ID, rec.Author, rec.CreatedAt)
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

func (repo *EntryRepo) RemoveByAuthor(ctx context.Context, authors []string) (int64, error) {
	names := repository.RemovableAuthors(authors)
	if len(names) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(names)+1)
	for _, n := range names {
		args = append(args, n)
	}
	args = append(args, entity.AnonymousAuthor)

	query := fmt.Sprintf(
		"DELETE FROM entries WHERE author IN (%s) AND author <> '' AND author <> $%d",
		numbered(1, len(names)), len(names)+1)

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("RemoveByAuthor: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("RemoveByAuthor: Exec: %w", err)
	}
	removed, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("RemoveByAuthor: Commit: %w", err)
	}
	return removed, nil
}

func (repo *EntryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}
