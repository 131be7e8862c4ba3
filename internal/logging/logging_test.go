package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error"} {
		level, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if got := LevelString(level); got != s {
			t.Errorf("expected %q, got %q", s, got)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level Info, got %v", cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("expected default format Text, got %v", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if cfg.Component != "swipebraille" {
		t.Errorf("expected component swipebraille, got %s", cfg.Component)
	}
}

func TestLoggerNew(t *testing.T) {
	logger, err := New(nil)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.Logger == nil {
		t.Error("logger.Logger is nil")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = LevelWarn
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("chord resolved")
	logger.Warn("table row skipped")

	out := buf.String()
	if strings.Contains(out, "chord resolved") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(out, "table row skipped") {
		t.Error("warn entry missing")
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = FormatJSON
	cfg.Component = ""
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.WithComponent("keyboard").Info("ready")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log entry: %v", err)
	}
	if entry["component"] != "keyboard" {
		t.Errorf("expected component keyboard, got %v", entry["component"])
	}
	if entry["msg"] != "ready" {
		t.Errorf("expected msg ready, got %v", entry["msg"])
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-42")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Errorf("expected req-42, got %q", got)
	}
}

func TestRequestIDFromNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	if got := RequestIDFromContext(nil); got != "" {
		t.Errorf("expected empty ID, got %q", got)
	}
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty ID, got %q", got)
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == b {
		t.Error("request IDs should be unique")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("request ID %q is not a UUID: %v", a, err)
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = FormatJSON
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	ctx := ContextWithRequestID(context.Background(), "abc")
	logger.WithContext(ctx).Info("resolve")

	if !strings.Contains(buf.String(), `"request_id":"abc"`) {
		t.Errorf("request_id missing from %s", buf.String())
	}

	if logger.WithContext(context.Background()) != logger {
		t.Error("context without request ID should return the same logger")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "braille.log")
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Info("mapping table loaded", "entries", 34)
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "entries=34") {
		t.Errorf("unexpected log contents: %s", data)
	}
}

func TestFileOutputRequiresPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = ""

	if _, err := New(cfg); err == nil {
		t.Error("expected error without a file path")
	}
}

func TestShouldRedact(t *testing.T) {
	keys := DefaultConfig().RedactKeys
	tests := []struct {
		key      string
		expected bool
	}{
		{"text", true},
		{"TEXT", true},
		{"buffer", true},
		{"dots", false},
		{"pattern", false},
		{"context", false},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			if got := shouldRedact(keys, test.key); got != test.expected {
				t.Errorf("shouldRedact(%q) = %v, expected %v", test.key, got, test.expected)
			}
		})
	}
}

func TestRedactedOutput(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Info("inserted", "text", "hunter2", "dots", "{1,2}")

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("typed text leaked into log: %s", out)
	}
	if !strings.Contains(out, "text=[REDACTED]") || !strings.Contains(out, "dots={1,2}") {
		t.Errorf("unexpected log line: %s", out)
	}
}

func TestDiscard(t *testing.T) {
	// must not panic or write anywhere
	Discard().Error("dropped")
}
