package metrigo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with metrigo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithMetric adds a metric name field to the logger.
func (l *Logger) WithMetric(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("metric", name),
	}
}

// LogBuild logs a tree construction.
func (l *Logger) LogBuild(ctx context.Context, cardinality, height int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"cardinality", cardinality,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"cardinality", cardinality,
			"height", height,
		)
	}
}

// LogKNN logs a k-NN search.
func (l *Logger) LogKNN(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "knn search failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "knn search completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogRange logs a range search.
func (l *Logger) LogRange(ctx context.Context, radius float64, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "range search failed",
			"radius", radius,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "range search completed",
			"radius", radius,
			"results", resultsFound,
		)
	}
}

// LogBatch logs a batch of queries.
func (l *Logger) LogBatch(ctx context.Context, queries, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch completed with failures",
			"total", queries,
			"failed", failed,
			"success", queries-failed,
		)
	} else {
		l.InfoContext(ctx, "batch completed",
			"queries", queries,
		)
	}
}

// LogSnapshot logs a snapshot save.
func (l *Logger) LogSnapshot(ctx context.Context, filename string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"filename", filename,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"filename", filename,
		)
	}
}

// LogRestore logs a snapshot load.
func (l *Logger) LogRestore(ctx context.Context, filename string, cardinality int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"filename", filename,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "restore completed",
			"filename", filename,
			"cardinality", cardinality,
		)
	}
}
