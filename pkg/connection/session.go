package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/nnnkkk7/pgcompat/pkg/query"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session is closed")

// Session is a query.Session on a dedicated connection. A transaction is
// started by the first Execute after construction, Commit or Rollback, so
// statements always run inside one.
type Session struct {
	mu         sync.Mutex
	conn       *sql.Conn
	tx         *sql.Tx
	classifier query.StatementClassifier
	closed     bool
}

var _ query.Session = (*Session)(nil)

// Execute runs stmt in the session's transaction. Statements that return
// rows are read fully into the result.
func (s *Session) Execute(ctx context.Context, stmt string, args ...any) (*query.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.tx == nil {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		s.tx = tx
	}

	if s.classifier.IsRead(stmt) {
		return s.query(ctx, stmt, args)
	}

	res, err := s.tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Not every driver reports affected rows for every statement.
		affected = 0
	}
	return &query.Result{RowsAffected: affected}, nil
}

func (s *Session) query(ctx context.Context, stmt string, args []any) (*query.Result, error) {
	rows, err := s.tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columnTypes := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			columnTypes[i] = ct.DatabaseTypeName()
		}
	}

	var resultRows [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]any, len(columns))
		for i, val := range values {
			row[i] = query.ConvertValue(val)
		}
		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &query.Result{
		Columns:      columns,
		ColumnTypes:  columnTypes,
		Rows:         resultRows,
		RowsAffected: int64(len(resultRows)),
	}, nil
}

// Commit commits the open transaction. It is a no-op when none is open.
func (s *Session) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Commit()
}

// Rollback rolls back the open transaction. It is a no-op when none is open.
func (s *Session) Rollback(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	return s.rollbackLocked()
}

func (s *Session) rollbackLocked() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback()
}

// InTransaction reports whether a transaction is open.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Close rolls back any open transaction and returns the connection to the pool.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	rbErr := s.rollbackLocked()
	if err := s.conn.Close(); err != nil {
		return err
	}
	if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		return rbErr
	}
	return nil
}
