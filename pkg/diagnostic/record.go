// Package diagnostic carries structured records describing translation gaps
// and classified execution failures to logs and storage.
package diagnostic

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Kind classifies a diagnostic record.
type Kind string

// Record kinds.
const (
	KindResidualUntranslated  Kind = "residual_untranslated"
	KindMalformedRewrite      Kind = "malformed_rewrite"
	KindIterationLimit        Kind = "iteration_limit"
	KindTransactionRolledBack Kind = "transaction_rolled_back"
	KindRollbackFailed        Kind = "rollback_failed"
	KindSyntaxError           Kind = "syntax_error"
	KindMissingRoutine        Kind = "missing_routine"
	KindCommitFailed          Kind = "commit_failed"
	KindSchemaInstall         Kind = "schema_install"
)

// Level returns the log level records of this kind are reported at.
func (k Kind) Level() slog.Level {
	switch k {
	case KindResidualUntranslated, KindMalformedRewrite, KindIterationLimit, KindTransactionRolledBack:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Record is a single diagnostic event with a title and free-text body.
type Record struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// New creates a record with a fresh ID and the current time.
func New(kind Kind, title, body string) Record {
	return Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

// Sink receives diagnostic records. Emit must not fail the caller: sinks
// that can fail report the failure on their own.
type Sink interface {
	Emit(ctx context.Context, rec Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, rec Record) { f(ctx, rec) }

// Discard drops every record.
var Discard Sink = SinkFunc(func(context.Context, Record) {})

// Multi fans records out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(ctx context.Context, rec Record) {
		for _, s := range live {
			s.Emit(ctx, rec)
		}
	})
}

// Excerpt returns at most n bytes of s without splitting a UTF-8 sequence.
func Excerpt(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
