package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.eggybyte.com/carddesk/core/identity"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf))

	logger.Info("client list loaded", "count", 3)

	output := buf.String()
	if !strings.Contains(output, "level=INFO") {
		t.Errorf("expected level=INFO, got: %s", output)
	}
	if !strings.Contains(output, `msg="client list loaded"`) {
		t.Errorf("expected msg in output, got: %s", output)
	}
	if !strings.Contains(output, "count=3") {
		t.Errorf("expected count=3 in output, got: %s", output)
	}
}

func TestFieldSorting(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf))

	logger.Info("test", "zebra", "z", "alpha", "a", "beta", "b")

	output := buf.String()
	alphaPos := strings.Index(output, `alpha="a"`)
	betaPos := strings.Index(output, `beta="b"`)
	zebraPos := strings.Index(output, `zebra="z"`)

	if alphaPos == -1 || betaPos == -1 || zebraPos == -1 {
		t.Fatalf("missing fields in output: %s", output)
	}
	if alphaPos > betaPos || betaPos > zebraPos {
		t.Errorf("fields not sorted: %s", output)
	}
}

func TestColorization(t *testing.T) {
	var buf bytes.Buffer
	New(WithWriter(&buf), WithColor(true)).Info("test")

	if !strings.Contains(buf.String(), "\033[36mINFO\033[0m") {
		t.Errorf("expected coloured INFO, got: %q", buf.String())
	}
}

func TestSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithSensitiveFields("oib"))

	logger.Info("client deleted", Str("oib", "12345678901"))

	output := buf.String()
	if strings.Contains(output, "12345678901") {
		t.Errorf("sensitive field not redacted: %s", output)
	}
	if !strings.Contains(output, "REDACTED") {
		t.Errorf("expected REDACTED in output: %s", output)
	}
}

func TestPayloadLimit(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithPayloadLimit(10))

	long := strings.Repeat("a", 100)
	logger.Info("test", "body", long)

	output := buf.String()
	if strings.Contains(output, long) {
		t.Errorf("long payload not truncated: %s", output)
	}
	if !strings.Contains(output, "truncated, 100 bytes") {
		t.Errorf("expected truncation marker in output: %s", output)
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf))

	logger.With("component", "page").Info("message", "key", "value")
	logger.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `component="page"`) || !strings.Contains(lines[0], `key="value"`) {
		t.Errorf("child attrs missing: %s", lines[0])
	}
	if strings.Contains(lines[1], "component") {
		t.Errorf("child attrs leaked to parent: %s", lines[1])
	}
}

func TestErrorLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf))

	logger.Error(errors.New("connection refused"), "registry call failed", "op", "delete")

	output := buf.String()
	if !strings.Contains(output, "level=ERROR") {
		t.Errorf("expected level=ERROR in output: %s", output)
	}
	if !strings.Contains(output, `error="connection refused"`) {
		t.Errorf("expected error field in output: %s", output)
	}
	if !strings.Contains(output, `op="delete"`) {
		t.Errorf("expected op field in output: %s", output)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithFormat(FormatJSON))

	logger.Warn("status changed", Str("oib", "1"), Int("count", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if record["level"] != "WARN" || record["msg"] != "status changed" {
		t.Errorf("unexpected record: %v", record)
	}
	if record["oib"] != "1" || record["count"] != float64(2) {
		t.Errorf("unexpected attrs: %v", record)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithLevel(slog.LevelWarn))
	child := logger.With("component", "page")

	child.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn: %s", buf.String())
	}

	logger.SetLevel(slog.LevelDebug)
	child.Debug("visible")
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("SetLevel should reach derived loggers: %s", buf.String())
	}
	if logger.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v", logger.Level())
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logFunc  func(l *Logger)
		expected string
	}{
		{"debug disabled at info level", func(l *Logger) { l.Debug("debug msg") }, ""},
		{"info enabled", func(l *Logger) { l.Info("info msg") }, "level=INFO"},
		{"warn enabled", func(l *Logger) { l.Warn("warn msg") }, "level=WARN"},
		{"error enabled", func(l *Logger) { l.Error(nil, "error msg") }, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(WithWriter(&buf), WithLevel(slog.LevelInfo))

			tt.logFunc(logger)

			output := buf.String()
			if tt.expected == "" && output != "" {
				t.Errorf("expected no output, got: %s", output)
			}
			if tt.expected != "" && !strings.Contains(output, tt.expected) {
				t.Errorf("expected %q in output, got: %s", tt.expected, output)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := New(WithWriter(&buf))

	ctx := identity.WithMeta(context.Background(), &identity.RequestMeta{RequestID: "req-abc", SessionID: "s-1"})
	FromContext(ctx, base).Info("test message")

	output := buf.String()
	if !strings.Contains(output, `request_id="req-abc"`) {
		t.Errorf("expected request_id in output: %s", output)
	}
	if !strings.Contains(output, `session_id="s-1"`) {
		t.Errorf("expected session_id in output: %s", output)
	}
	if FromContext(context.Background(), base) != base {
		t.Error("FromContext without meta should return base")
	}
}

func TestSlog(t *testing.T) {
	var buf bytes.Buffer
	New(WithWriter(&buf)).Slog().WithGroup("http").Info("served", "status", 200)

	if !strings.Contains(buf.String(), "http.status=200") {
		t.Errorf("expected grouped key, got: %s", buf.String())
	}
}

func BenchmarkLogger(b *testing.B) {
	logger := New(WithWriter(&bytes.Buffer{}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark", "z_field", "z", "m_field", "m", "iteration", i)
	}
}
