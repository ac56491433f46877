package audit

import (
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	before := time.Now()
	e := NewEvent(SeverityInfo, "query executed")

	if e.ID == "" {
		t.Error("expected event ID to be set")
	}
	if e.Severity != SeverityInfo {
		t.Errorf("Severity = %q, want %q", e.Severity, SeverityInfo)
	}
	if e.Message != "query executed" {
		t.Errorf("Message = %q", e.Message)
	}
	if e.Timestamp.Before(before) || e.Timestamp.After(time.Now()) {
		t.Error("timestamp outside creation window")
	}

	other := NewEvent(SeverityInfo, "query executed")
	if other.ID == e.ID {
		t.Error("expected unique event IDs")
	}
}

func TestEvent_Builders(t *testing.T) {
	e := NewEvent(SeverityError, "boom").
		WithTool("postgres_query", "postgres").
		WithTarget("users").
		WithResult(false, "timeout", 1500*time.Millisecond)

	if e.Tool != "postgres_query" || e.Backend != "postgres" {
		t.Errorf("tool/backend = %q/%q", e.Tool, e.Backend)
	}
	if e.Target != "users" {
		t.Errorf("Target = %q", e.Target)
	}
	if e.Success {
		t.Error("Success = true, want false")
	}
	if e.ErrorKind != "timeout" {
		t.Errorf("ErrorKind = %q", e.ErrorKind)
	}
	if e.DurationMS != 1500 {
		t.Errorf("DurationMS = %d, want 1500", e.DurationMS)
	}
}

func TestSanitizeParameters(t *testing.T) {
	params := map[string]any{
		"table":    "users",
		"limit":    100,
		"password": "hunter2",
		"token":    "abc123",
		"api_key":  "key",
	}

	sanitized := SanitizeParameters(params)

	if sanitized["table"] != "users" || sanitized["limit"] != 100 {
		t.Errorf("non-sensitive values altered: %v", sanitized)
	}
	for _, key := range []string{"password", "token", "api_key"} {
		if sanitized[key] != "[REDACTED]" {
			t.Errorf("%s = %v, want [REDACTED]", key, sanitized[key])
		}
	}

	// The original map must stay untouched.
	if params["password"] != "hunter2" {
		t.Error("SanitizeParameters mutated its input")
	}

	if SanitizeParameters(nil) != nil {
		t.Error("expected nil for nil input")
	}
}
