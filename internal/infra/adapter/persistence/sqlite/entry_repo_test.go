package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/infra/adapter/persistence/sqlite"
)

/* ──────────────────────────── 1. ContainsAll ──────────────────────────── */

func TestEntryRepo_ContainsAll(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM entries WHERE id IN (?,?,?)")).
		WithArgs("a", "b", "c").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("c"))

	repo := sqlite.NewEntryRepo(db)
	got, err := repo.ContainsAll(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ContainsAll err=%v", err)
	}

	if len(got) != 2 || !got["a"] || got["b"] || !got["c"] {
		t.Errorf("ContainsAll = %v, want {a,c}", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepo_ContainsAll_Empty(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := sqlite.NewEntryRepo(db)
	got, err := repo.ContainsAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("ContainsAll err=%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("result length = %d, want 0", len(got))
	}
	// no query issued
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepo_ContainsAll_ChunksAtPlaceholderLimit(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	ids := make([]string, 1000)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}

	mock.ExpectQuery(`SELECT id FROM entries WHERE id IN \((\?,){998}\?\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-0"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM entries WHERE id IN (?)")).
		WithArgs("id-999").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-999"))

	repo := sqlite.NewEntryRepo(db)
	got, err := repo.ContainsAll(context.Background(), ids)
	if err != nil {
		t.Fatalf("ContainsAll err=%v", err)
	}
	if len(got) != 2 || !got["id-0"] || !got["id-999"] {
		t.Errorf("ContainsAll = %v, want {id-0,id-999}", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepo_ContainsAll_QueryError(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT id FROM entries").WillReturnError(errors.New("disk I/O error"))

	repo := sqlite.NewEntryRepo(db)
	_, err := repo.ContainsAll(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("ContainsAll should fail")
	}
	if want := "ContainsAll: QueryContext: disk I/O error"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

/* ──────────────────────────── 2. InsertIfAbsent ──────────────────────────── */

func TestEntryRepo_InsertIfAbsent(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	records := []*entity.StoredRecord{
		{ID: "a", Author: "alice", CreatedAt: now},
		{ID: "b", Author: "", CreatedAt: now},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO entries (id, author, created_at) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING"))
	prep.ExpectExec().WithArgs("a", "alice", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	// already present: skipped without error
	prep.ExpectExec().WithArgs("b", "", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	repo := sqlite.NewEntryRepo(db)
	inserted, err := repo.InsertIfAbsent(context.Background(), records)
	if err != nil {
		t.Fatalf("InsertIfAbsent err=%v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepo_InsertIfAbsent_RollbackOnError(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO entries")
	prep.ExpectExec().WithArgs("a", "alice", sqlmock.AnyArg()).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	repo := sqlite.NewEntryRepo(db)
	_, err := repo.InsertIfAbsent(context.Background(), []*entity.StoredRecord{{ID: "a", Author: "alice", CreatedAt: time.Now()}})
	if err == nil {
		t.Fatal("InsertIfAbsent should fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepo_InsertIfAbsent_Empty(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := sqlite.NewEntryRepo(db)
	inserted, err := repo.InsertIfAbsent(context.Background(), nil)
	if err != nil || inserted != 0 {
		t.Fatalf("InsertIfAbsent(nil) = %d, %v", inserted, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ──────────────────────────── 3. RemoveByAuthor ──────────────────────────── */

func TestEntryRepo_RemoveByAuthor(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM entries WHERE author IN (?,?) AND author <> '' AND author <> ?")).
		WithArgs("X", "Y", "anonymous").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	repo := sqlite.NewEntryRepo(db)
	removed, err := repo.RemoveByAuthor(context.Background(), []string{"X", " ", "", "anonymous", "Y", "X"})
	if err != nil {
		t.Fatalf("RemoveByAuthor err=%v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepo_RemoveByAuthor_OnlySentinels(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := sqlite.NewEntryRepo(db)
	removed, err := repo.RemoveByAuthor(context.Background(), []string{"", "  ", "anonymous"})
	if err != nil || removed != 0 {
		t.Fatalf("RemoveByAuthor = %d, %v, want 0, nil", removed, err)
	}
	// no transaction opened
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepo_RemoveByAuthor_ExecError(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM entries").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	repo := sqlite.NewEntryRepo(db)
	if _, err := repo.RemoveByAuthor(context.Background(), []string{"X"}); err == nil {
		t.Fatal("RemoveByAuthor should fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepo_RemoveByAuthor_ChunksInOneTransaction(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	authors := make([]string, 999)
	for i := range authors {
		authors[i] = fmt.Sprintf("author-%d", i)
	}

	// 998件 + 番兵で999プレースホルダ、残り1件は次のチャンク
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM entries WHERE author IN \((\?,){997}\?\) AND author <> '' AND author <> \?`).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM entries WHERE author IN (?) AND author <> '' AND author <> ?")).
		WithArgs("author-998", "anonymous").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	repo := sqlite.NewEntryRepo(db)
	removed, err := repo.RemoveByAuthor(context.Background(), authors)
	if err != nil {
		t.Fatalf("RemoveByAuthor err=%v", err)
	}
	if removed != 7 {
		t.Errorf("removed = %d, want 7", removed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ──────────────────────────── 4. Count ──────────────────────────── */

func TestEntryRepo_Count(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM entries")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	repo := sqlite.NewEntryRepo(db)
	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count err=%v", err)
	}
	if n != 7 {
		t.Errorf("Count = %d, want 7", n)
	}
}
