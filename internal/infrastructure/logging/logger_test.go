package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/kestrelworks/spatial-core/internal/infrastructure/config"
)

// captureLogger builds a Logger writing to buf through the same handler
// construction New uses.
func captureLogger(cfg config.LoggingConfig, version string, buf *bytes.Buffer) *Logger {
	return &Logger{Logger: slog.New(newHandler(cfg, version, buf))}
}

func TestJSONOutputCarriesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	log := captureLogger(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)

	log.Info("rule compiled", "rule", "door-watch")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["service"] != "spatialcore" {
		t.Errorf("service = %v, want spatialcore", entry["service"])
	}
	if entry["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", entry["version"])
	}
	if entry["msg"] != "rule compiled" || entry["rule"] != "door-watch" {
		t.Errorf("entry = %v", entry)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := captureLogger(config.LoggingConfig{Level: "info", Format: "text"}, "dev", &buf)

	log.Info("bridge started")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("text format produced JSON: %s", out)
	}
	if !strings.Contains(out, "bridge started") {
		t.Errorf("output missing message: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := captureLogger(config.LoggingConfig{Level: "warn", Format: "json"}, "dev", &buf)

	log.Debug("pose update", "entity", "cart-1")
	log.Info("tick")
	if buf.Len() != 0 {
		t.Fatalf("entries below warn were emitted: %s", buf.String())
	}

	log.Warn("pose dropped", "entity", "cart-1")
	if buf.Len() == 0 {
		t.Error("warn entry was filtered")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWithAddsComponentAttr(t *testing.T) {
	var buf bytes.Buffer
	log := captureLogger(config.LoggingConfig{Level: "info", Format: "json"}, "dev", &buf)

	child := log.With("component", "tracking")
	if child == log {
		t.Fatal("With() should return a new logger")
	}
	child.Info("pose received")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "tracking" {
		t.Errorf("component = %v, want tracking", entry["component"])
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
