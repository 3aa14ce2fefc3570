package diagnostic

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// ErrorLogTable is the table persisted records are written to.
const ErrorLogTable = "pgcompat_error_log"

// DB is the direct, unwrapped database access the store writes through.
// connection.Manager satisfies it. Writes must not go through the resilient
// executor, or a failure record could trigger further records.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store persists records to the error log table.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates the error log table if needed and returns a store.
func NewStore(ctx context.Context, db DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store := &Store{db: db, logger: logger}

	if err := store.initTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s table: %w", ErrorLogTable, err)
	}
	return store, nil
}

func (s *Store) initTable(ctx context.Context) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS ` + ErrorLogTable + ` (
			id VARCHAR(36) PRIMARY KEY,
			kind VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`
	_, err := s.db.Exec(ctx, createTableSQL)
	return err
}

// Save writes a record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	insertSQL := `INSERT INTO ` + ErrorLogTable + ` (id, kind, title, body, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, insertSQL,
		rec.ID,
		string(rec.Kind),
		Excerpt(rec.Title, 255),
		rec.Body,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save diagnostic record: %w", err)
	}
	return nil
}

// Emit saves the record and logs, rather than returns, a write failure.
func (s *Store) Emit(ctx context.Context, rec Record) {
	if err := s.Save(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "diagnostic store write failed",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	selectSQL := `SELECT id, kind, title, body, created_at FROM ` + ErrorLogTable + ` ORDER BY created_at DESC LIMIT $1`

	rows, err := s.db.Query(ctx, selectSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostic records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			kind      string
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Title, &rec.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic record: %w", err)
		}
		rec.Kind = Kind(kind)
		rec.CreatedAt = createdAt
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnostic records: %w", err)
	}
	return records, nil
}

// Purge deletes records created before cutoff and returns how many were removed.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM `+ErrorLogTable+` WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge diagnostic records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
