package audit

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies audit events.
type Severity string

const (
	// SeverityInfo is a routine event, emitted only when query logging is
	// enabled.
	SeverityInfo Severity = "info"

	// SeverityError is an error event, always emitted regardless of the
	// query-logging flag.
	SeverityError Severity = "error"
)

// Event is one structured, timestamped record of an attempted operation and
// its outcome. Events are append-only; the gateway never reads them back.
type Event struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Severity   Severity       `json:"severity"`
	Tool       string         `json:"tool,omitempty"`
	Backend    string         `json:"backend,omitempty"`
	Target     string         `json:"target,omitempty"`
	Message    string         `json:"message"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Success    bool           `json:"success"`
	ErrorKind  string         `json:"error_kind,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// NewEvent creates an audit event for a tool invocation.
func NewEvent(severity Severity, message string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Severity:  severity,
		Message:   message,
	}
}

// WithTool records the invoked tool and backend.
func (e *Event) WithTool(tool, backend string) *Event {
	e.Tool = tool
	e.Backend = backend
	return e
}

// WithTarget records the collection or table the operation addressed.
func (e *Event) WithTarget(target string) *Event {
	e.Target = target
	return e
}

// WithParameters attaches request parameters after redaction.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = SanitizeParameters(params)
	return e
}

// WithResult records the outcome and duration of the operation.
func (e *Event) WithResult(success bool, errorKind string, duration time.Duration) *Event {
	e.Success = success
	e.ErrorKind = errorKind
	e.DurationMS = duration.Milliseconds()
	return e
}

// SanitizeParameters returns a copy of params with credential-bearing keys
// redacted.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	sensitiveKeys := map[string]bool{
		"password":      true,
		"secret":        true,
		"token":         true,
		"api_key":       true,
		"authorization": true,
		"credentials":   true,
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if sensitiveKeys[k] {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}
	return sanitized
}
