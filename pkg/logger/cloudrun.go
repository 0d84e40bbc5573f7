package logger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// CloudRunHandler writes one JSON object per record in the shape Cloud Logging
// parses from a container's stdout.
type CloudRunHandler struct {
	level slog.Level
	out   io.Writer
	mu    *sync.Mutex
}

func NewCloudRunHandler(level slog.Level) slog.Handler {
	return newCloudRunHandler(level, os.Stdout)
}

func newCloudRunHandler(level slog.Level, out io.Writer) *CloudRunHandler {
	return &CloudRunHandler{level: level, out: out, mu: &sync.Mutex{}}
}

func (h *CloudRunHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *CloudRunHandler) Handle(_ context.Context, r slog.Record) error {
	event := map[string]any{
		"severity": mapSeverity(r.Level),
		"message":  r.Message,
		"time":     r.Time.Format(time.RFC3339Nano),
	}

	if r.NumAttrs() > 0 {
		data := make(map[string]any, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			data[a.Key] = attrValue(a.Value)
			return true
		})
		event["data"] = data
	}

	b, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.out.Write(append(b, '\n'))
	return err
}

func (h *CloudRunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &withAttrsHandler{handler: h, attrs: attrs}
}

// Groups are flattened; Cloud Logging only shows the data map.
func (h *CloudRunHandler) WithGroup(_ string) slog.Handler {
	return h
}

// ---- Helpers ----

func mapSeverity(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	case level >= slog.LevelDebug:
		return "DEBUG"
	default:
		return "DEFAULT"
	}
}

// errors marshal to {} with encoding/json, so render them as text.
func attrValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}

type withAttrsHandler struct {
	handler *CloudRunHandler
	attrs   []slog.Attr
}

func (h *withAttrsHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h *withAttrsHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	return h.handler.Handle(ctx, r)
}

func (h *withAttrsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	all := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &withAttrsHandler{handler: h.handler, attrs: all}
}

func (h *withAttrsHandler) WithGroup(_ string) slog.Handler {
	return h
}
