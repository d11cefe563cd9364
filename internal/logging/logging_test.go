package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

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
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("collected", "app", "123", "new", 5)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line above debug, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("json handler output: %v", err)
	}
	if rec["msg"] != "collected" || rec["app"] != "123" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewWriterText(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, "debug", "text").Debug("page fetched", "page", 2)
	if !strings.Contains(buf.String(), "msg=\"page fetched\"") || !strings.Contains(buf.String(), "page=2") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}
