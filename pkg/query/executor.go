package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nnnkkk7/pgcompat/pkg/config"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
)

// Executor wraps a Session with statement translation, bounded retry after
// aborted transactions and classified failure reporting. It implements
// Session itself, so callers keep depending on the interface.
type Executor struct {
	base        Session
	translator  SQLTranslator
	normalizer  Normalizer
	sink        diagnostic.Sink
	logger      *slog.Logger
	maxAttempts int
	policy      config.IterationLimitPolicy
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxAttempts sets the total attempt budget per call, including the first.
func WithMaxAttempts(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithNormalizer sets the step applied to the translated statement before it
// reaches the base session.
func WithNormalizer(n Normalizer) ExecutorOption {
	return func(e *Executor) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// WithSink sets the diagnostic sink for execution failures.
func WithSink(sink diagnostic.Sink) ExecutorOption {
	return func(e *Executor) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIterationLimitPolicy selects what happens when translation stops at
// its iteration bound.
func WithIterationLimitPolicy(policy config.IterationLimitPolicy) ExecutorOption {
	return func(e *Executor) {
		if policy.Valid() {
			e.policy = policy
		}
	}
}

// NewExecutor wraps base.
func NewExecutor(base Session, translator SQLTranslator, opts ...ExecutorOption) *Executor {
	if translator == nil {
		translator = NewTranslator()
	}
	e := &Executor{
		base:        base,
		translator:  translator,
		normalizer:  Identity,
		sink:        diagnostic.Discard,
		logger:      slog.Default(),
		maxAttempts: config.DefaultMaxAttempts,
		policy:      config.PolicyPartial,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Wrap returns a decorator that wraps sessions with the given translator
// and options.
func Wrap(translator SQLTranslator, opts ...ExecutorOption) func(Session) Session {
	return func(base Session) Session {
		return NewExecutor(base, translator, opts...)
	}
}

// Base returns the wrapped session.
func (e *Executor) Base() Session {
	return e.base
}

// retryContext is the state of one Execute call.
type retryContext struct {
	attempt int
	lastErr error
}

// Execute translates stmt once and runs it against the base session,
// rolling back and retrying while the failure is an aborted transaction and
// attempts remain. Any other failure is returned unchanged on first sight.
func (e *Executor) Execute(ctx context.Context, stmt string, args ...any) (*Result, error) {
	tr := e.translator.Translate(ctx, stmt)
	if tr.Exhausted && e.policy == config.PolicyStrict {
		return nil, ErrIterationLimit
	}
	translated := e.normalizer.Normalize(tr.Text)

	rc := &retryContext{}
	for rc.attempt < e.maxAttempts {
		rc.attempt++

		result, err := e.base.Execute(ctx, translated, args...)
		if err == nil {
			if rc.attempt > 1 {
				e.logger.DebugContext(ctx, "statement succeeded after retry", slog.Int("attempt", rc.attempt))
			}
			return result, nil
		}
		rc.lastErr = err

		if !IsTransactionAborted(err) {
			e.reportFatal(ctx, stmt, translated, args, err)
			return nil, err
		}

		if rbErr := e.base.Rollback(ctx); rbErr != nil {
			e.sink.Emit(ctx, diagnostic.New(diagnostic.KindRollbackFailed,
				"PostgreSQL Rollback Failed",
				fmt.Sprintf("Rollback Error: %v\n\nOriginal Error: %v", rbErr, err)))
			return nil, err
		}
		e.sink.Emit(ctx, diagnostic.New(diagnostic.KindTransactionRolledBack,
			fmt.Sprintf("PostgreSQL Transaction Rolled Back (Retry %d/%d)", rc.attempt, e.maxAttempts),
			fmt.Sprintf("Query: %s\n\nOriginal Query: %s\n\nError: %v",
				diagnostic.Excerpt(translated, config.RetryExcerptLen),
				diagnostic.Excerpt(stmt, config.RetryExcerptLen),
				err)))
	}
	return nil, rc.lastErr
}

// reportFatal annotates syntax and missing-routine failures.
func (e *Executor) reportFatal(ctx context.Context, original, translated string, args []any, err error) {
	switch {
	case IsSyntaxError(err):
		e.sink.Emit(ctx, diagnostic.New(diagnostic.KindSyntaxError,
			"PostgreSQL Syntax Error",
			fmt.Sprintf("Transformed Query: %s\n\nOriginal Query: %s\n\nValues: %s\n\nError: %v",
				diagnostic.Excerpt(translated, config.FailureExcerptLen),
				diagnostic.Excerpt(original, config.FailureExcerptLen),
				diagnostic.Excerpt(fmt.Sprint(args), config.ParamsPreviewLen),
				err)))
	case IsMissingRoutine(err):
		e.sink.Emit(ctx, diagnostic.New(diagnostic.KindMissingRoutine,
			"PostgreSQL Function Not Found",
			fmt.Sprintf("Transformed Query: %s\n\nOriginal Query: %s\n\nError: %v\n\nHint: This might require database-level function creation",
				diagnostic.Excerpt(translated, config.FailureExcerptLen),
				diagnostic.Excerpt(original, config.FailureExcerptLen),
				err)))
	default:
		e.logger.DebugContext(ctx, "statement failed", slog.String("error", err.Error()))
	}
}

// Commit commits the base session. A failure is reported and returned.
func (e *Executor) Commit(ctx context.Context) error {
	if err := e.base.Commit(ctx); err != nil {
		e.sink.Emit(ctx, diagnostic.New(diagnostic.KindCommitFailed, "PostgreSQL Commit Failed", err.Error()))
		return err
	}
	return nil
}

// Rollback rolls back the base session. It is used for cleanup, so a
// failure is logged at debug level and never returned.
func (e *Executor) Rollback(ctx context.Context) error {
	if err := e.base.Rollback(ctx); err != nil {
		e.logger.DebugContext(ctx, "cleanup rollback failed", slog.String("error", err.Error()))
	}
	return nil
}
