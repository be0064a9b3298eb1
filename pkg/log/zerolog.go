package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// ZerologProvider is the default LoggerProvider, backed by zerolog.
type ZerologProvider struct {
	mu     sync.RWMutex
	base   zerolog.Logger
	level  Level
}

// ProviderOption configures a ZerologProvider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	writer  io.Writer
	console bool
}

// WithWriter redirects output (default os.Stderr).
func WithWriter(w io.Writer) ProviderOption {
	return func(c *providerConfig) { c.writer = w }
}

// WithConsoleOutput switches from JSON lines to zerolog's human readable console writer.
func WithConsoleOutput() ProviderOption {
	return func(c *providerConfig) { c.console = true }
}

// NewZerologProvider creates a provider emitting records at or above level.
func NewZerologProvider(level Level, opts ...ProviderOption) *ZerologProvider {
	cfg := &providerConfig{writer: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}

	w := cfg.writer
	if cfg.console {
		w = zerolog.ConsoleWriter{Out: cfg.writer, TimeFormat: time.RFC3339}
	}

	p := &ZerologProvider{
		base: zerolog.New(w).With().Timestamp().Logger(),
	}
	p.SetLevel(level)
	return p
}

// GetLogger implements LoggerProvider.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base}
}

// GetLoggerWithName implements LoggerProvider.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider. Loggers created afterwards use the new level.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.base = p.base.Level(toZerologLevel(level))
}

// Level returns the current minimum level.
func (p *ZerologProvider) Level() Level {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

// warn routes pkg/errors warnings into the structured log.
func (p *ZerologProvider) warn(w error) {
	logger := p.GetLoggerWithName("warnings").(*zerologLogger)
	ev := logger.zl.Warn()
	if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
		ev = ev.Object("warning", obj)
	}
	ev.Msg(w.Error())
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.zl.Warn(), msg, fields) }

// Error は先頭フィールドが error の場合、error と stacktrace を付与して出力します。
func (l *zerologLogger) Error(msg string, fields ...any) {
	ev := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceKey, st)
			}
			fields = fields[1:]
		}
	}
	l.emit(ev, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fieldValue(fields[i+1]))
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

func fieldValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func extractStacktrace(err error) string {
	details := errors.GetSafeDetails(err)
	if len(details) > 0 {
		return details[0]
	}
	return ""
}
