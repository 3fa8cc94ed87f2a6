// Package telemetry provides logging and metrics for the sentinel-stac tools.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey string

const runIDKey contextKey = "run_id"

// NewLogger creates a structured JSON logger writing to w.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// WithRunID stores the pipeline run id in the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunID retrieves the pipeline run id from the context, or "" if unset.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// RunLogger returns a logger with run-scoped fields attached.
func RunLogger(logger *slog.Logger, ctx context.Context) *slog.Logger {
	if id := RunID(ctx); id != "" {
		return logger.With(slog.String("run_id", id))
	}
	return logger
}
