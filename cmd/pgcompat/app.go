package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nnnkkk7/pgcompat/pkg/compat"
	"github.com/nnnkkk7/pgcompat/pkg/config"
	"github.com/nnnkkk7/pgcompat/pkg/connection"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
	"github.com/nnnkkk7/pgcompat/pkg/patch"
	"github.com/nnnkkk7/pgcompat/pkg/query"
)

var errNoDatabase = errors.New("no database configured: set dsn (or PGCOMPAT_DSN), or use --driver duckdb")

// app is the wired process: diagnostics fan out to the log, the in-memory
// buffer and optionally the error log table; the installed session is the
// resilient executor over a single-connection session.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	buffer *diagnostic.Buffer
	store  *diagnostic.Store
	sink   diagnostic.Sink

	mgr       *connection.Manager
	session   *connection.Session
	registry  *patch.Registry
	wrap      patch.WrapFunc
	installer *compat.Installer
}

// hasDatabase reports whether cfg names a database to connect to. DuckDB
// with an empty DSN is an in-memory database.
func hasDatabase(cfg *config.Config) bool {
	return cfg.DSN != "" || cfg.Driver == "duckdb"
}

// newApp wires the components. Without a database only the translator and
// diagnostics are available, unless requireDB is set.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, requireDB bool) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		buffer: diagnostic.NewBuffer(cfg.DiagnosticTTL),
	}
	sinks := []diagnostic.Sink{diagnostic.NewLogSink(logger), a.buffer}

	if !hasDatabase(cfg) {
		if requireDB {
			a.buffer.Close()
			return nil, errNoDatabase
		}
		logger.WarnContext(ctx, "no database configured; query and function endpoints are disabled")
		a.sink = diagnostic.Multi(sinks...)
		return a, nil
	}

	mgr, err := connection.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		a.buffer.Close()
		return nil, err
	}
	a.mgr = mgr

	if cfg.PersistDiagnostics {
		store, err := diagnostic.NewStore(ctx, mgr, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.store = store
		sinks = append(sinks, store)
	}
	a.sink = diagnostic.Multi(sinks...)

	session, err := mgr.OpenSession(ctx)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	a.session = session

	a.wrap = query.Wrap(query.NewTranslatorFromConfig(cfg, a.sink),
		query.WithMaxAttempts(cfg.MaxAttempts),
		query.WithIterationLimitPolicy(cfg.IterationLimitPolicy),
		query.WithNormalizer(query.NewPostgresNormalizer()),
		query.WithSink(a.sink),
		query.WithLogger(logger),
	)
	a.registry = patch.NewRegistry(session)
	if a.registry.Install(a.wrap) {
		logger.InfoContext(ctx, "resilient executor installed", slog.Int("maxAttempts", cfg.MaxAttempts))
	}
	a.installer = compat.NewInstaller(mgr, a.sink, logger)

	return a, nil
}

// Close releases the session, the database and the buffer cleanup loop.
func (a *app) Close() error {
	var errs []error
	if a.session != nil {
		errs = append(errs, a.session.Close())
	}
	if a.mgr != nil {
		errs = append(errs, a.mgr.Close())
	}
	a.buffer.Close()
	return errors.Join(errs...)
}
