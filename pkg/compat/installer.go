// Package compat installs, verifies and drops the database functions that
// emulate dialect-A built-ins missing from PostgreSQL.
package compat

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
)

// DB is the unwrapped database access the installer runs DDL through.
// connection.Manager satisfies it.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
}

// installStatements are executed one by one, in order.
var installStatements = []string{
	"DROP AGGREGATE IF EXISTS GROUP_CONCAT(text) CASCADE",
	"DROP FUNCTION IF EXISTS group_concat_sfunc(text, text) CASCADE",
	`CREATE OR REPLACE FUNCTION group_concat_sfunc(text, text)
RETURNS text AS $$
    SELECT CASE
        WHEN $1 IS NULL THEN $2
        WHEN $2 IS NULL THEN $1
        ELSE $1 || ',' || $2
    END
$$ LANGUAGE SQL IMMUTABLE`,
	`CREATE AGGREGATE GROUP_CONCAT(text) (
    SFUNC = group_concat_sfunc,
    STYPE = text
)`,
	`CREATE OR REPLACE FUNCTION unix_timestamp(timestamp with time zone DEFAULT NOW())
RETURNS bigint AS $$
    SELECT EXTRACT(EPOCH FROM $1)::bigint
$$ LANGUAGE SQL IMMUTABLE`,
	`CREATE OR REPLACE FUNCTION unix_timestamp(timestamp without time zone)
RETURNS bigint AS $$
    SELECT EXTRACT(EPOCH FROM $1::timestamp with time zone)::bigint
$$ LANGUAGE SQL IMMUTABLE`,
	`CREATE OR REPLACE FUNCTION timestampdiff(unit text, start_ts timestamp, end_ts timestamp)
RETURNS integer AS $$
BEGIN
    CASE LOWER(unit)
        WHEN 'second' THEN
            RETURN EXTRACT(EPOCH FROM (end_ts - start_ts))::integer;
        WHEN 'minute' THEN
            RETURN (EXTRACT(EPOCH FROM (end_ts - start_ts)) / 60)::integer;
        WHEN 'hour' THEN
            RETURN (EXTRACT(EPOCH FROM (end_ts - start_ts)) / 3600)::integer;
        WHEN 'day' THEN
            RETURN EXTRACT(DAY FROM (end_ts - start_ts))::integer;
        WHEN 'month' THEN
            RETURN ((EXTRACT(YEAR FROM end_ts) - EXTRACT(YEAR FROM start_ts)) * 12 +
                    EXTRACT(MONTH FROM end_ts) - EXTRACT(MONTH FROM start_ts))::integer;
        WHEN 'year' THEN
            RETURN (EXTRACT(YEAR FROM end_ts) - EXTRACT(YEAR FROM start_ts))::integer;
        ELSE
            RAISE EXCEPTION 'Unsupported unit: %', unit;
    END CASE;
END;
$$ LANGUAGE plpgsql IMMUTABLE`,
}

var dropStatements = []string{
	"DROP AGGREGATE IF EXISTS GROUP_CONCAT(text) CASCADE",
	"DROP FUNCTION IF EXISTS group_concat_sfunc(text, text) CASCADE",
	"DROP FUNCTION IF EXISTS unix_timestamp(timestamp with time zone) CASCADE",
	"DROP FUNCTION IF EXISTS unix_timestamp(timestamp without time zone) CASCADE",
	"DROP FUNCTION IF EXISTS unix_timestamp() CASCADE",
	"DROP FUNCTION IF EXISTS timestampdiff(text, timestamp, timestamp) CASCADE",
}

// probeQuery counts the installed routines.
const probeQuery = `SELECT COUNT(DISTINCT proname) FROM pg_catalog.pg_proc WHERE proname IN ('group_concat', 'group_concat_sfunc', 'unix_timestamp', 'timestampdiff')`

const routineCount = 4

// InstallReport summarizes an Install run.
type InstallReport struct {
	Succeeded int      `json:"succeeded"`
	Warnings  []string `json:"warnings,omitempty"`
}

// OK reports whether every statement succeeded or already existed.
func (r InstallReport) OK() bool {
	return len(r.Warnings) == 0
}

// Installer manages the compatibility functions.
type Installer struct {
	db     DB
	sink   diagnostic.Sink
	logger *slog.Logger
}

// NewInstaller creates an installer. A nil sink or logger falls back to
// diagnostic.Discard and slog.Default().
func NewInstaller(db DB, sink diagnostic.Sink, logger *slog.Logger) *Installer {
	if sink == nil {
		sink = diagnostic.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{db: db, sink: sink, logger: logger}
}

// Install runs each statement separately. "already exists" failures count as
// neither success nor warning; any other failure becomes a warning and the
// remaining statements still run. The error is non-nil only when ctx ends.
func (i *Installer) Install(ctx context.Context) (InstallReport, error) {
	var report InstallReport
	for _, stmt := range installStatements {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := i.db.Exec(ctx, stmt); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "already exists") {
				continue
			}
			report.Warnings = append(report.Warnings, diagnostic.Excerpt(err.Error(), 100))
			continue
		}
		report.Succeeded++
	}

	if report.OK() {
		i.logger.InfoContext(ctx, "compatibility functions created", slog.Int("statements", report.Succeeded))
	} else {
		i.sink.Emit(ctx, diagnostic.New(diagnostic.KindSchemaInstall,
			fmt.Sprintf("Created functions with %d warnings (%d succeeded)", len(report.Warnings), report.Succeeded),
			strings.Join(report.Warnings, "\n")))
	}
	return report, nil
}

// Drop removes every compatibility function. Failures are collected and
// returned together after all statements ran.
func (i *Installer) Drop(ctx context.Context) error {
	var failures []string
	for _, stmt := range dropStatements {
		if _, err := i.db.Exec(ctx, stmt); err != nil {
			failures = append(failures, diagnostic.Excerpt(err.Error(), 100))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("failed to drop %d compatibility statements: %s", len(failures), strings.Join(failures, "; "))
	}
	i.logger.InfoContext(ctx, "compatibility functions dropped")
	return nil
}

// Installed reports whether all compatibility routines exist.
func (i *Installer) Installed(ctx context.Context) bool {
	var n int
	if err := i.db.QueryRow(ctx, probeQuery).Scan(&n); err != nil {
		i.logger.DebugContext(ctx, "compatibility probe failed", slog.String("error", err.Error()))
		return false
	}
	return n >= routineCount
}
