package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	WithComponent(logger, "runner").Info("unit complete",
		slog.String("species", "L. annulata"),
		slog.Int("processed", 3),
		slog.Any("error", errors.New("boom goes the request")),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO runner: unit complete") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, `species="L. annulata"`) {
		t.Fatalf("species attr not quoted: %q", line)
	}
	if !strings.Contains(line, "processed=3") {
		t.Fatalf("int attr missing: %q", line)
	}
	if !strings.Contains(line, `error="boom goes the request"`) {
		t.Fatalf("error attr missing: %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	if strings.Contains(buf.String(), "quiet") {
		t.Fatalf("info line not suppressed: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestJSONHandlerLowercasesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("timestamp key missing")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing should happen")
}
