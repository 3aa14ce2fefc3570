package query

import (
	"context"
)

// Session is a database session with an implicit open transaction.
// Execute runs inside that transaction; Commit and Rollback end it.
type Session interface {
	Execute(ctx context.Context, stmt string, args ...any) (*Result, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SQLTranslator defines the interface for SQL translation.
type SQLTranslator interface {
	// Translate converts dialect-A SQL to PostgreSQL-compatible SQL.
	Translate(ctx context.Context, sql string) Translation
}

// Normalizer rewrites placeholder and quoting style after translation.
type Normalizer interface {
	Normalize(sql string) string
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(sql string) string

// Normalize calls f.
func (f NormalizerFunc) Normalize(sql string) string { return f(sql) }

// Identity leaves statements unchanged.
var Identity Normalizer = NormalizerFunc(func(sql string) string { return sql })

// StatementClassifier decides whether a statement returns rows.
type StatementClassifier interface {
	Classify(sql string) Classification
	IsRead(sql string) bool
}
