// Package logging provides structured logging utilities using the standard
// library's log/slog package. All pipeline progress and retry failures are
// reported through slog, so the logger configured here is also installed as
// the process default.
package logging

import (
	"log/slog"
	"os"
)

// NewLogger creates a structured logger with JSON output and installs it as
// the default logger. The level is controlled via the LOG_LEVEL environment
// variable (debug, info, warn, error; default info).
func NewLogger() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     levelFromEnv(),
		AddSource: levelFromEnv() <= slog.LevelWarn,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// NewTextLogger creates a logger with human-readable text output for local
// runs and installs it as the default logger.
func NewTextLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// FromEnv creates and installs the process logger: text output when
// LOG_FORMAT=text (readable for local one-shot runs), JSON otherwise.
func FromEnv() *slog.Logger {
	if os.Getenv("LOG_FORMAT") == "text" {
		return NewTextLogger()
	}
	return NewLogger()
}

func levelFromEnv() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
