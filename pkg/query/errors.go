package query

import (
	"errors"
	"fmt"
)

// Kind classifies gateway errors so callers can tell retryable conditions
// apart from permanent rejections.
type Kind string

const (
	// KindValidation marks requests rejected before any backend contact.
	// Never retryable.
	KindValidation Kind = "validation"

	// KindPoolExhausted marks checkout failures under the fail-fast pool
	// policy. The caller may retry with backoff.
	KindPoolExhausted Kind = "pool_exhausted"

	// KindTimeout marks executions cancelled by the per-request deadline.
	// Reported distinctly from generic backend failures.
	KindTimeout Kind = "timeout"

	// KindBackend marks native driver failures. Full detail is logged
	// internally; Summary returns the caller-safe form.
	KindBackend Kind = "backend"

	// KindResultTooLarge marks executions whose row count still exceeded
	// the configured cap after limit injection.
	KindResultTooLarge Kind = "result_too_large"
)

// Error is the typed error returned by the gateway for every failure mode in
// the taxonomy.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap returns the wrapped driver error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Summary returns the message safe to surface to the caller. Backend errors
// are summarized so native driver detail and internal topology never leak;
// every other kind carries its reason verbatim.
func (e *Error) Summary() string {
	if e.Kind == KindBackend {
		return "backend query failed"
	}
	return e.Reason
}

// NewValidationError returns a validation rejection.
func NewValidationError(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// NewPoolExhaustedError returns a pool exhaustion failure.
func NewPoolExhaustedError(backend string) *Error {
	return &Error{Kind: KindPoolExhausted, Reason: fmt.Sprintf("no %s connections available", backend)}
}

// NewTimeoutError returns a per-request deadline expiry.
func NewTimeoutError(backend string, err error) *Error {
	return &Error{Kind: KindTimeout, Reason: fmt.Sprintf("%s query exceeded time budget", backend), Err: err}
}

// NewBackendError wraps a native driver failure.
func NewBackendError(backend string, err error) *Error {
	return &Error{Kind: KindBackend, Reason: fmt.Sprintf("%s driver error", backend), Err: err}
}

// NewResultTooLargeError reports a post-limit row overflow.
func NewResultTooLargeError(rows, cap int) *Error {
	return &Error{Kind: KindResultTooLarge, Reason: fmt.Sprintf("result has %d rows, cap is %d", rows, cap)}
}

// KindOf returns the Kind of err when it is (or wraps) a gateway Error, and
// an empty Kind otherwise.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
