package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got none")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, line)
	}
	return m
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "debug")

	l.WithComponent("speaker").Info("alias assigned", Fields(FieldMeetingID, 42, FieldLabel, "SPEAKER_01"))

	m := decodeLine(t, &buf)
	tests := []struct {
		key  string
		want interface{}
	}{
		{"service", "test-svc"},
		{FieldComponent, "speaker"},
		{FieldLabel, "SPEAKER_01"},
		{FieldMeetingID, float64(42)},
		{"message", "alias assigned"},
		{"level", "info"},
	}
	for _, tt := range tests {
		if m[tt.key] != tt.want {
			t.Errorf("expected %s=%v, got %v", tt.key, tt.want, m[tt.key])
		}
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		log     func(*Logger)
		written bool
	}{
		{"debug hidden at info", "info", func(l *Logger) { l.Debug("d") }, false},
		{"info shown at info", "info", func(l *Logger) { l.Info("i") }, true},
		{"info hidden at warn", "warn", func(l *Logger) { l.Info("i") }, false},
		{"warn shown at warn", "warn", func(l *Logger) { l.Warn("w") }, true},
		{"error shown at warn", "warn", func(l *Logger) { l.Error("e") }, true},
		{"invalid level falls back to info", "loud", func(l *Logger) { l.Debug("d") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(newJSONLogger(&buf, tt.level))
			if (buf.Len() > 0) != tt.written {
				t.Errorf("expected written=%v, got %q", tt.written, buf.String())
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = trace.ContextWithSpanContext(ctx, sc)
	l.WithContext(ctx).Info("hello")

	m := decodeLine(t, &buf)
	if m[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id 'req-1', got %v", m[FieldRequestID])
	}
	if m[FieldTraceID] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("expected span trace id, got %v", m[FieldTraceID])
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("expected 'req-1', got %q", got)
	}
}

func TestWithContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(&buf, "info").WithContext(context.Background()).Info("bare")

	m := decodeLine(t, &buf)
	if _, ok := m[FieldTraceID]; ok {
		t.Errorf("expected no trace_id, got %v", m[FieldTraceID])
	}
	if _, ok := m[FieldRequestID]; ok {
		t.Errorf("expected no request_id, got %v", m[FieldRequestID])
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "speakerid", &buf)
	l.Warn("cache down", Fields(FieldMeetingID, 7))

	out := buf.String()
	for _, want := range []string{"[SPE][WRN]", "cache down", "meeting_id:7"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestLevelTag(t *testing.T) {
	tests := []struct {
		lvl     string
		noColor bool
		want    string
	}{
		{"INFO", true, "[INF]"},
		{"ERROR", true, "[ERR]"},
		{"INFO", false, "\033[32m[INF]\033[0m"},
		{"TRACE", true, "[TRACE]"},
	}
	for _, tt := range tests {
		if got := levelTag(tt.lvl, tt.noColor); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded", Fields("a", 1))
	l.WithComponent("x").WithContext(context.Background()).Error("discarded")
}

func TestGlobalLogger(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger")
	}

	var buf bytes.Buffer
	globalLogger = newJSONLogger(&buf, "info")
	Info("global message")
	if !strings.Contains(buf.String(), "global message") {
		t.Errorf("expected global logger output, got %q", buf.String())
	}
}

func TestInitUsesServiceName(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	Init(&Config{ServiceName: "speakerid-test", Format: "json"})
	if GetGlobalLogger().service != "speakerid-test" {
		t.Errorf("expected service 'speakerid-test', got %q", GetGlobalLogger().service)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"json", Config{Level: "debug", Format: "json"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, "b", "two", "dangling")
	if len(f) != 2 {
		t.Errorf("expected 2 fields, got %d", len(f))
	}
	if f["b"] != "two" {
		t.Errorf("expected b='two', got %v", f["b"])
	}

	ef := ErrorFields("assign_alias", errors.New("x"))
	if ef[FieldOperation] != "assign_alias" || ef[FieldError] != "x" {
		t.Errorf("unexpected error fields: %v", ef)
	}

	merged := MergeWithError(nil, errors.New("y"))
	if merged[FieldError] != "y" {
		t.Errorf("expected error 'y', got %v", merged[FieldError])
	}
}
