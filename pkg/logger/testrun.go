package logger

import (
	"io"
	"log/slog"
)

// NewTestHandler discards everything; services under test still get a usable logger.
func NewTestHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})
}
