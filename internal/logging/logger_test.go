package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"netsight/internal/logging"
)

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logging.WithComponent(logger, "merge").Info("phase complete", "networks", 42, "note", "dry run")

	line := buf.String()
	if !strings.Contains(line, "INFO merge: phase complete") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "networks=42") {
		t.Fatalf("missing attribute: %q", line)
	}
	if !strings.Contains(line, `note="dry run"`) {
		t.Fatalf("expected quoted value: %q", line)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("ingested", "inserted", 3)

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if payload["msg"] != "ingested" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line leaked past warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "WARN kept") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
