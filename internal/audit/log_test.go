package audit

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestLogEventAndRecent(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "audit", "audit.sqlite"))
	if err := logger.LogEvent("cli", "report_save_started", map[string]any{"month": "Jan"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := logger.LogEvent("api", "report_save_finished", map[string]any{"month": "Jan", "year": 2025}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	events, err := logger.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != "report_save_finished" || events[0].Actor != "api" {
		t.Fatalf("newest event = %+v", events[0])
	}
	var payload map[string]any
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["month"] != "Jan" {
		t.Fatalf("payload = %v", payload)
	}
	if events[0].TS.IsZero() {
		t.Fatalf("timestamp not parsed")
	}
}

func TestEnvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.sqlite")
	t.Setenv("NLVREPORT_AUDIT_DB", path)
	var logger *Logger
	if err := logger.LogEvent("cli", "ping", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	events, err := NewLogger(path).Recent(1)
	if err != nil || len(events) != 1 || events[0].Type != "ping" {
		t.Fatalf("Recent = %+v, %v", events, err)
	}
}
