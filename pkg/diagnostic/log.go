package diagnostic

import (
	"context"
	"log/slog"
)

// LogSink writes records to a slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit logs the record at the level of its kind.
func (s *LogSink) Emit(ctx context.Context, rec Record) {
	s.logger.Log(ctx, rec.Kind.Level(), rec.Title,
		slog.String("id", rec.ID),
		slog.String("kind", string(rec.Kind)),
		slog.String("body", rec.Body),
	)
}
