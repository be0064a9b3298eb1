package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider = NewZerologProvider(LevelInfo)
)

// SetupLogger configures the global provider from a level name ("debug",
// "info", "warn", "error") and a format ("json" or "console"), and routes
// pkg/errors warnings through it.
func SetupLogger(level, format string, w io.Writer) *ZerologProvider {
	if w == nil {
		w = os.Stderr
	}
	opts := []ProviderOption{WithWriter(w)}
	if format == "console" {
		opts = append(opts, WithConsoleOutput())
	}
	p := NewZerologProvider(ToLogLevel(level), opts...)
	SetProvider(p)
	errors.SetZerologWarnFunc(p.warn)
	return p
}

// ToLogLevel converts a level name to a Level. It panics on an unknown name;
// configuration validation rejects those before this is reached.
func ToLogLevel(level string) Level {
	switch level {
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

// SetProvider replaces the global provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = p
}

// GetProvider returns the global provider.
func GetProvider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider
}

// GetLogger returns a logger from the global provider.
func GetLogger() Logger {
	return GetProvider().GetLogger()
}

// GetLoggerWithName returns a component logger from the global provider.
func GetLoggerWithName(name string) Logger {
	return GetProvider().GetLoggerWithName(name)
}
