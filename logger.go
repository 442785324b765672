package topogo

import (
	"context"
	"log/slog"
	"os"

	"github.com/brepkit/topogo/registry"
	"github.com/brepkit/topogo/resolve"
)

// Logger wraps slog.Logger with topogo-specific helpers so log output uses
// consistent field names across the session.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses the default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// LogTrack logs a reference creation.
func (l *Logger) LogTrack(ctx context.Context, id registry.ID, kind string, owner string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "track failed",
			"kind", kind,
			"owner", owner,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "reference tracked",
			"id", string(id),
			"kind", kind,
			"owner", owner,
		)
	}
}

// LogResolve logs a resolution attempt.
func (l *Logger) LogResolve(ctx context.Context, id registry.ID, out resolve.Outcome, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "resolve failed",
			"id", string(id),
			"error", err,
		)
	case out.Resolved():
		l.DebugContext(ctx, "resolve matched",
			"id", string(id),
			"strategy", out.Strategy.String(),
			"score", out.Score,
			"candidates", out.CandidatesConsidered,
		)
	default:
		l.InfoContext(ctx, "resolve found no match",
			"id", string(id),
			"candidates", out.CandidatesConsidered,
		)
	}
}

// LogOperation logs a ledger append.
func (l *Logger) LogOperation(ctx context.Context, name, kind string, affected int) {
	l.DebugContext(ctx, "operation recorded",
		"operation", name,
		"kind", kind,
		"affected", affected,
	)
}

// LogSnapshotSave logs a snapshot save operation.
func (l *Logger) LogSnapshotSave(ctx context.Context, name string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot save failed",
			"snapshot", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"snapshot", name,
			"references", count,
		)
	}
}

// LogSnapshotLoad logs a snapshot load operation.
func (l *Logger) LogSnapshotLoad(ctx context.Context, name string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"snapshot", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"snapshot", name,
			"references", count,
		)
	}
}
