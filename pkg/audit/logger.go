// Package audit provides structured audit logging for the gateway.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes audit events as JSON lines with ISO-8601 timestamps. Writes
// are synchronous and best effort; there is no buffering. Info events respect
// the enabled flag, error events are unconditional.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
}

// NewLogger creates a logger writing to out. A nil out defaults to stderr.
func NewLogger(out io.Writer, enabled bool) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, enabled: enabled}
}

// line is the wire form of an event; the timestamp is rendered as RFC 3339.
type line struct {
	Timestamp string `json:"timestamp"`
	*Event
}

// Log writes the event. Info-severity events are dropped when query logging
// is disabled.
func (l *Logger) Log(event *Event) {
	if event == nil {
		return
	}
	if event.Severity != SeverityError && !l.enabled {
		return
	}

	data, err := json.Marshal(line{
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Event:     event,
	})
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(data))
}

// Infof logs a formatted informational message, gated by the enabled flag.
func (l *Logger) Infof(format string, args ...any) {
	l.Log(NewEvent(SeverityInfo, fmt.Sprintf(format, args...)))
}

// Errorf logs a formatted error message unconditionally.
func (l *Logger) Errorf(format string, args ...any) {
	l.Log(NewEvent(SeverityError, fmt.Sprintf(format, args...)))
}
