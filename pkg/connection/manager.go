// Package connection manages the database handle and the sessions statements
// are executed on.
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/nnnkkk7/pgcompat/pkg/query"
)

// Manager manages database connections with proper locking.
//
// The Manager ensures thread-safe access to the database:
//   - Query operations can be concurrent (reads)
//   - Exec operations are serialized using a mutex (writes)
//
// Sessions opened with OpenSession hold a dedicated connection and are not
// covered by the write mutex.
type Manager struct {
	db         *sql.DB
	writeMu    sync.Mutex
	classifier query.StatementClassifier
}

// NewManager creates a new connection manager for the given database.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db, classifier: query.NewClassifier()}
}

// Open opens a database with the given driver and DSN, verifies it is
// reachable and returns a manager for it.
func Open(ctx context.Context, driver, dsn string) (*Manager, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	return NewManager(db), nil
}

// Query executes a read query (can be concurrent).
// Multiple goroutines can call Query simultaneously.
func (m *Manager) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return m.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row.
func (m *Manager) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return m.db.QueryRowContext(ctx, query, args...)
}

// Exec executes a write operation (serialized).
// Write operations are serialized using a mutex to prevent conflicts.
func (m *Manager) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.db.ExecContext(ctx, query, args...)
}

// OpenSession reserves a connection from the pool for a new session.
func (m *Manager) OpenSession(ctx context.Context) (*Session, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve connection: %w", err)
	}
	return &Session{conn: conn, classifier: m.classifier}, nil
}

// Ping verifies the database is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}
