package diagnostic

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
)

// sqlDB adapts *sql.DB to the store's DB interface.
type sqlDB struct{ db *sql.DB }

func (s sqlDB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s sqlDB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// setupMockStore creates a store over sqlmock after the table creation
// statement ran.
func setupMockStore(t *testing.T, logger *slog.Logger) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + ErrorLogTable)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewStore(context.Background(), sqlDB{db: db}, logger)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store, mock
}

func TestNewStore_CreateTableFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied for schema public"))

	if _, err := NewStore(context.Background(), sqlDB{db: db}, nil); err == nil {
		t.Fatal("NewStore() error = nil, want error")
	}
}

func TestStore_Save(t *testing.T) {
	store, mock := setupMockStore(t, nil)
	rec := New(KindMissingRoutine, "PostgreSQL Function Not Found", "Hint: This might require database-level function creation")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO " + ErrorLogTable)).
		WithArgs(rec.ID, string(rec.Kind), rec.Title, rec.Body, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_EmitLogsFailure(t *testing.T) {
	var out bytes.Buffer
	store, mock := setupMockStore(t, slog.New(slog.NewTextHandler(&out, nil)))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO " + ErrorLogTable)).
		WillReturnError(errors.New("connection refused"))

	store.Emit(context.Background(), New(KindCommitFailed, "PostgreSQL Commit Failed", "boom"))

	if !strings.Contains(out.String(), "diagnostic store write failed") {
		t.Errorf("expected write failure to be logged, got %q", out.String())
	}
}

func TestStore_List(t *testing.T) {
	store, mock := setupMockStore(t, nil)
	created := time.Date(2025, 12, 9, 8, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "kind", "title", "body", "created_at"}).
		AddRow("id-2", "syntax_error", "PostgreSQL Syntax Error", "b2", created.Add(time.Minute)).
		AddRow("id-1", "residual_untranslated", "IF() still present after transformation", "b1", created)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, kind, title, body, created_at FROM " + ErrorLogTable)).
		WithArgs(100).
		WillReturnRows(rows)

	got, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []Record{
		{ID: "id-2", Kind: KindSyntaxError, Title: "PostgreSQL Syntax Error", Body: "b2", CreatedAt: created.Add(time.Minute)},
		{ID: "id-1", Kind: KindResidualUntranslated, Title: "IF() still present after transformation", Body: "b1", CreatedAt: created},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Purge(t *testing.T) {
	store, mock := setupMockStore(t, nil)
	cutoff := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + ErrorLogTable)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := store.Purge(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if n != 12 {
		t.Errorf("Purge() = %d, want 12", n)
	}
}
