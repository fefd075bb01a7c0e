package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Level: "warn"})

	log.Info("hidden")
	log.Warn("Review stalled", "assignment_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected only the warning, got %d lines", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON output: %v", err)
	}
	if entry["msg"] != "Review stalled" || entry["assignment_id"] != float64(7) {
		t.Errorf("Unexpected entry: %v", entry)
	}
	if ts, _ := entry["time"].(string); len(ts) != len("2006-01-02 15:04:05") {
		t.Errorf("Unexpected time format %q", ts)
	}
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Config{Level: "debug", Format: "TEXT"}).Debug("details", "k", "v")

	if !strings.Contains(buf.String(), "msg=details") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("Expected text output, got %q", buf.String())
	}
}

func TestGetLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"Warn":    "WARN",
		"error":   "ERROR",
		"verbose": "INFO",
		"":        "INFO",
	}
	for in, want := range tests {
		if got := GetLevel(in); got != want {
			t.Errorf("GetLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
