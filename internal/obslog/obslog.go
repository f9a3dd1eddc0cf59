// Package obslog holds the gateway's package-level logger: a single
// atomically-swappable *slog.Logger configured once at startup, replacing
// the teacher's bare fmt.Fprintf(os.Stderr, ...) calls with structured
// logging.
package obslog

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	logger   atomic.Pointer[slog.Logger]
	logLevel = new(slog.LevelVar)
)

func init() {
	logLevel.Set(slog.LevelInfo)
	logger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// L returns the current logger.
func L() *slog.Logger {
	return logger.Load()
}

// Configure replaces the logger's handler: "json" for machine-readable
// output, anything else for the default text handler.
func Configure(format, level string) {
	SetLevelFromString(level)
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	default:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	logger.Store(slog.New(handler))
}

// SetLevelFromString sets the log level from a config/env string.
func SetLevelFromString(level string) {
	switch level {
	case "debug", "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "warn", "WARN", "warning", "WARNING":
		logLevel.Set(slog.LevelWarn)
	case "error", "ERROR":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
}
