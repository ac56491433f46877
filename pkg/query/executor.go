package query

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/txn2/mcp-data-gateway/pkg/audit"
	"github.com/txn2/mcp-data-gateway/pkg/pool"
)

// Limits bounds every execution regardless of what the request asked for.
type Limits struct {
	// DefaultLimit is the row limit applied when the request carries none.
	DefaultLimit int

	// MaxRows caps the effective limit and the returned row count.
	MaxRows int

	// MaxQueryTime caps the per-request execution budget.
	MaxQueryTime time.Duration
}

// EffectiveLimit resolves the request limit against the configured bounds:
// min(requested, MaxRows), with DefaultLimit substituted when the request
// carries no limit.
func (l Limits) EffectiveLimit(requested int) int {
	if requested <= 0 {
		requested = l.DefaultLimit
	}
	if requested > l.MaxRows {
		return l.MaxRows
	}
	return requested
}

// FetchLimit is the limit an adapter injects into the native query. It is
// the effective limit, except when the effective limit already sits at the
// row cap: then one extra row is requested so an overflowing result is
// detected as an error instead of silently truncated.
func (l Limits) FetchLimit(requested int) int {
	effective := l.EffectiveLimit(requested)
	if effective >= l.MaxRows {
		return l.MaxRows + 1
	}
	return effective
}

// Op performs the backend-native call for one request using a checked-out
// session. fetchLimit must be injected into the native query; the deadline on
// ctx carries the execution budget.
type Op[S any] func(ctx context.Context, conn S, fetchLimit int) ([]map[string]any, error)

// Executor orchestrates one request end to end: validation, scoped session
// acquisition, deadline and limit enforcement, and outcome auditing. A
// validation rejection returns before any session is touched; every checkout
// is matched by exactly one checkin on success, rejection, and error paths
// alike.
type Executor[S any] struct {
	backend string
	pool    *pool.Pool[S]
	limits  Limits
	auditor *audit.Logger
}

// NewExecutor creates an executor for one backend's pool.
func NewExecutor[S any](backend string, p *pool.Pool[S], limits Limits, auditor *audit.Logger) *Executor[S] {
	return &Executor[S]{backend: backend, pool: p, limits: limits, auditor: auditor}
}

// Limits returns the configured execution bounds.
func (e *Executor[S]) Limits() Limits {
	return e.limits
}

// Validate applies the read-only policy to the Spec without touching any
// session: SQL text goes through the keyword policy, pipelines through the
// write-stage policy. Structured filters carry no executable text and pass.
func (e *Executor[S]) Validate(spec Spec) Verdict {
	if spec.SQL != "" {
		return ValidateSQL(spec.SQL)
	}
	if spec.Pipeline != nil {
		return ValidatePipeline(spec.Pipeline)
	}
	return Allow()
}

// Execute runs one validated request. On success it returns the canonical
// rows in backend order; on failure it returns a typed gateway error.
func (e *Executor[S]) Execute(ctx context.Context, tool string, spec Spec, op Op[S]) (*Result, error) {
	start := time.Now()

	if verdict := e.Validate(spec); !verdict.Allowed {
		err := NewValidationError(verdict.Reason)
		e.audit(tool, spec, start, err)
		return nil, err
	}

	rows, err := e.run(ctx, spec, op)
	if err != nil {
		e.audit(tool, spec, start, err)
		return nil, err
	}

	if len(rows) > e.limits.MaxRows {
		err := NewResultTooLargeError(len(rows), e.limits.MaxRows)
		e.audit(tool, spec, start, err)
		return nil, err
	}

	e.audit(tool, spec, start, nil)
	return &Result{Rows: rows, Count: len(rows)}, nil
}

// run acquires a session, applies the execution budget, and invokes the
// backend call. The deferred checkin inside WithSession covers every exit
// path.
func (e *Executor[S]) run(ctx context.Context, spec Spec, op Op[S]) ([]map[string]any, error) {
	budget := e.limits.MaxQueryTime
	if spec.Timeout > 0 && spec.Timeout < budget {
		budget = spec.Timeout
	}

	var rows []map[string]any
	err := e.pool.WithSession(ctx, func(ctx context.Context, conn S) error {
		opCtx, cancel := context.WithTimeout(ctx, budget)
		defer cancel()

		var opErr error
		rows, opErr = op(opCtx, conn, e.limits.FetchLimit(spec.Limit))
		if opErr != nil {
			if errors.Is(opErr, context.DeadlineExceeded) || opCtx.Err() == context.DeadlineExceeded || isServerCanceled(opErr) {
				return NewTimeoutError(e.backend, opErr)
			}
			return NewBackendError(e.backend, opErr)
		}
		return nil
	})
	if err != nil {
		return nil, Classify(e.backend, err)
	}
	return rows, nil
}

// Classify maps session and driver failures onto the gateway taxonomy.
// Errors already typed pass through unchanged.
func Classify(backend string, err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, pool.ErrExhausted) {
		return NewPoolExhaustedError(backend)
	}
	if errors.Is(err, context.DeadlineExceeded) || isServerCanceled(err) {
		return NewTimeoutError(backend, err)
	}
	return NewBackendError(backend, err)
}

// isServerCanceled reports whether a driver error is the backend's own
// statement-timeout cancellation. The server-side timer can fire marginally
// before the client deadline, so these arrive with the context still live.
func isServerCanceled(err error) bool {
	// postgres query_canceled; lib/pq errors expose SQLState().
	var state interface{ SQLState() string }
	if errors.As(err, &state) && state.SQLState() == "57014" {
		return true
	}
	// mysql 3024 ER_QUERY_TIMEOUT (max_execution_time exceeded),
	// 1317 ER_QUERY_INTERRUPTED.
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == 3024 || myErr.Number == 1317) {
		return true
	}
	return false
}

// audit records the attempt. Failures are error severity and therefore
// always emitted; successes are informational and respect the logging flag.
func (e *Executor[S]) audit(tool string, spec Spec, start time.Time, err error) {
	if e.auditor == nil {
		return
	}

	duration := time.Since(start)
	if err == nil {
		e.auditor.Log(audit.NewEvent(audit.SeverityInfo, "query executed").
			WithTool(tool, e.backend).
			WithTarget(spec.Target).
			WithResult(true, "", duration))
		return
	}

	e.auditor.Log(audit.NewEvent(audit.SeverityError, err.Error()).
		WithTool(tool, e.backend).
		WithTarget(spec.Target).
		WithResult(false, string(KindOf(err)), duration))
}
