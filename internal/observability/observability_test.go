package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"sales-dashboard/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerFrom(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newHandler(&buf, config.LoggerConfig{Level: "info", Format: "json"}))

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")
	LoggerFrom(ctx, base).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["request_id"] != "req-1" || rec["session_id"] != "sess-1" {
		t.Errorf("log record = %v", rec)
	}
	if _, ok := rec["source"]; !ok {
		t.Error("records should carry source")
	}
}

func TestLoggerFrom_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newHandler(&buf, config.LoggerConfig{Level: "info", Format: "text"}))

	LoggerFrom(context.Background(), base).Info("hello")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id in %q", buf.String())
	}
}

func TestSpan(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "parent")
	if len(parent.TraceID) != 16 || len(parent.SpanID) != 16 {
		t.Errorf("ids = %q/%q, want 16 chars", parent.TraceID, parent.SpanID)
	}
	if GetSpan(ctx) != parent {
		t.Error("span should be stored in the context")
	}

	_, child := StartSpan(ctx, "child")
	if child.TraceID != parent.TraceID || child.ParentID != parent.SpanID {
		t.Errorf("child = %+v, parent = %+v", child, parent)
	}

	child.SetError(errors.New("boom"))
	var buf bytes.Buffer
	child.Finish(slog.New(newHandler(&buf, config.LoggerConfig{Level: "debug", Format: "text"})))

	if child.Status != SpanStatusError {
		t.Errorf("status = %s, want ERROR", child.Status)
	}
	if !strings.Contains(buf.String(), "span finished") || !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("unexpected span log %q", buf.String())
	}
}
