package logger

import (
	"log/slog"
	"strings"
)

func New(level string, handler func(level slog.Level) slog.Handler) *slog.Logger {
	return slog.New(handler(ParseLevel(level)))
}

// ParseLevel accepts LOGLEVEL values such as "debug", "WARN" or "warning".
// Anything unrecognised logs at info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
