package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
	"github.com/nnnkkk7/pgcompat/pkg/query"
	"github.com/nnnkkk7/pgcompat/server/handlers"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server",
		Long: `Run the admin HTTP server. It reports patch status, previews translations,
executes statements through the resilient executor and manages the
compatibility functions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				opts.cfg.ListenAddr = addr
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

// newRouter mounts the admin handler behind the standard middleware.
func newRouter(a *app) http.Handler {
	handlerOpts := []handlers.AdminOption{
		handlers.WithBuffer(a.buffer),
		handlers.WithLogger(a.logger),
	}
	if a.registry != nil {
		handlerOpts = append(handlerOpts,
			handlers.WithRegistry(a.registry, a.wrap),
			handlers.WithInstaller(a.installer),
			handlers.WithPinger(a.mgr),
		)
	}
	// Preview translations do not emit diagnostics.
	preview := query.NewTranslatorFromConfig(a.cfg, diagnostic.Discard)
	h := handlers.NewAdminHandler(preview, handlerOpts...)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	h.Routes(r)
	return r
}

func runServe(ctx context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.cfg, opts.logger, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			opts.logger.Error("failed to close", slog.String("error", err.Error()))
		}
	}()

	server := &http.Server{
		Addr:         opts.cfg.ListenAddr,
		Handler:      newRouter(a),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		opts.logger.Info("starting pgcompat admin server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		opts.logger.Info("shutting down admin server")
		return server.Shutdown(shutdownCtx)
	})

	if a.store != nil {
		g.Go(func() error {
			purgeLoop(gctx, a)
			return nil
		})
	}

	return g.Wait()
}

// purgeLoop removes persisted records older than the diagnostic TTL.
func purgeLoop(ctx context.Context, a *app) {
	ticker := time.NewTicker(a.cfg.DiagnosticTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := a.store.Purge(ctx, time.Now().UTC().Add(-a.cfg.DiagnosticTTL))
			if err != nil {
				a.logger.WarnContext(ctx, "diagnostic purge failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.DebugContext(ctx, "purged diagnostic records", slog.Int64("records", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
