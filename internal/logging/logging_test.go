package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerEmitsKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "info"}, &buf)

	log.Info("deposit recorded", "user", "0xabc", "amount", 100)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["message"] != "deposit recorded" {
		t.Errorf("message = %v, want deposit recorded", entry["message"])
	}
	if entry["user"] != "0xabc" {
		t.Errorf("user = %v, want 0xabc", entry["user"])
	}
	if entry["amount"] != float64(100) {
		t.Errorf("amount = %v, want 100", entry["amount"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn"}, &buf)

	log.Info("should be dropped")
	log.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("info line emitted at warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn line missing")
	}
}

func TestLoggerOddArgs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "info"}, &buf)

	log.Info("odd", "dangling")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["arg"] != "dangling" {
		t.Errorf("arg = %v, want dangling", entry["arg"])
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	log := Nop()
	log.Debug("a")
	log.Info("b")
	log.Warn("c")
	log.Error("d")
}
