package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestCloudRunHandlerWritesSeverityAndData(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newCloudRunHandler(slog.LevelInfo, &buf)).With("uid", "uid-1")

	log.Warn("bank sync failed", "bank_id", "item-1", "error", errors.New("plaid down"))

	var event struct {
		Severity string         `json:"severity"`
		Message  string         `json:"message"`
		Data     map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if event.Severity != "WARNING" || event.Message != "bank sync failed" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Data["uid"] != "uid-1" || event.Data["bank_id"] != "item-1" {
		t.Fatalf("attrs missing: %+v", event.Data)
	}
	if event.Data["error"] != "plaid down" {
		t.Fatalf("error not rendered as text: %#v", event.Data["error"])
	}
}

func TestCloudRunHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newCloudRunHandler(slog.LevelWarn, &buf))

	log.Info("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithStoresEnrichedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newCloudRunHandler(slog.LevelInfo, &buf))

	_, ctx := With(ToContext(context.Background(), base), "uid", "uid-9")
	FromContext(ctx).Info("allocation applied")

	var event struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if event.Data["uid"] != "uid-9" {
		t.Fatalf("uid missing: %+v", event.Data)
	}
}
