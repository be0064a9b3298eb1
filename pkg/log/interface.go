// Package log provides the structured logging interface used across the
// regression workflow.
//
// The interface is slog-compatible so the backend can be swapped; the default
// backend is zerolog (see NewZerologProvider). Loggers are obtained from the
// global provider:
//
//	logger := log.GetLoggerWithName("tuning").With(
//	    log.ModelNameKey, "RandomForestRegressor",
//	    log.EstimatorIDKey, runID,
//	)
//	logger.Info("Randomized search finished", log.ScoreKey, best)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Error treats an error passed as the
// first field specially: it is logged under "error" together with the stack
// trace recorded by cockroachdb/errors.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. Tests inject a TestLoggerProvider.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
