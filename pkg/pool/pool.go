// Package pool provides a bounded pool of live backend sessions with
// explicit checkout/checkin accounting.
//
// The pool is the only shared mutable resource in the gateway; all free-list
// accounting is serialized so concurrent requests never observe the same
// session as available twice. Exhaustion behavior is an explicit policy, not
// an implicit driver default: checkout either blocks the caller until a
// session frees up or fails fast.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Policy selects the behavior of Checkout when all sessions are in use.
type Policy string

const (
	// PolicyBlock blocks the caller until a session is returned or the
	// context is done.
	PolicyBlock Policy = "block"

	// PolicyFail fails the checkout immediately with ErrExhausted.
	PolicyFail Policy = "fail"
)

// ErrExhausted is returned by Checkout when the pool is at capacity and the
// configured policy does not permit waiting, or when waiting is cut short by
// the caller's context.
var ErrExhausted = errors.New("connection pool exhausted")

// ErrClosed is returned by Checkout after Close.
var ErrClosed = errors.New("connection pool closed")

// Factory creates one backend session. It is invoked at pool creation for
// the minimum size, which doubles as the startup liveness probe: a factory
// error at that point is fatal to the caller.
type Factory[S any] func(ctx context.Context) (S, error)

// CloseFunc releases one backend session.
type CloseFunc[S any] func(S) error

// Config bounds and parameterizes a Pool.
type Config struct {
	Backend string
	MinSize int
	MaxSize int
	Policy  Policy
}

// Session is one pooled backend session handle.
type Session[S any] struct {
	Conn      S
	CreatedAt time.Time

	checkedOut bool
}

// Pool owns a bounded set of sessions for a single backend.
type Pool[S any] struct {
	cfg     Config
	factory Factory[S]
	closeFn CloseFunc[S]

	// slots holds one token per checked-out session; its capacity is the
	// pool's upper bound.
	slots chan struct{}

	mu     sync.Mutex
	idle   []*Session[S]
	total  int
	closed bool
}

// New creates a pool and eagerly opens MinSize sessions as the startup
// liveness probe. Any probe failure is returned to the caller, which is
// expected to treat it as fatal; the gateway has no degraded mode.
func New[S any](ctx context.Context, cfg Config, factory Factory[S], closeFn CloseFunc[S]) (*Pool[S], error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("pool max size must be positive, got %d", cfg.MaxSize)
	}
	if cfg.MinSize < 0 || cfg.MinSize > cfg.MaxSize {
		return nil, fmt.Errorf("pool min size %d out of range [0, %d]", cfg.MinSize, cfg.MaxSize)
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyBlock
	}

	p := &Pool[S]{
		cfg:     cfg,
		factory: factory,
		closeFn: closeFn,
		slots:   make(chan struct{}, cfg.MaxSize),
	}

	for i := 0; i < cfg.MinSize; i++ {
		conn, err := factory(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("probing %s backend: %w", cfg.Backend, err)
		}
		p.idle = append(p.idle, &Session[S]{Conn: conn, CreatedAt: time.Now()})
		p.total++
	}

	return p, nil
}

// Checkout acquires a session. Under PolicyBlock it waits for a free slot
// until the context is done; under PolicyFail it returns ErrExhausted
// immediately when the pool is at capacity.
func (p *Pool[S]) Checkout(ctx context.Context) (*Session[S], error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if err := p.acquireSlot(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, ErrClosed
	}
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		s.checkedOut = true
		p.mu.Unlock()
		return s, nil
	}
	p.total++
	p.mu.Unlock()

	conn, err := p.factory(ctx)
	if err != nil {
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
		<-p.slots
		return nil, fmt.Errorf("opening %s session: %w", p.cfg.Backend, err)
	}

	return &Session[S]{Conn: conn, CreatedAt: time.Now(), checkedOut: true}, nil
}

func (p *Pool[S]) acquireSlot(ctx context.Context) error {
	if p.cfg.Policy == PolicyFail {
		select {
		case p.slots <- struct{}{}:
			return nil
		default:
			return ErrExhausted
		}
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrExhausted, ctx.Err())
	}
}

// Checkin returns a session to the pool. It is safe to call more than once
// for the same session; releases after the first are no-ops, so a scoped
// release in a defer can never double-free.
func (p *Pool[S]) Checkin(s *Session[S]) {
	if s == nil {
		return
	}

	p.mu.Lock()
	if !s.checkedOut {
		p.mu.Unlock()
		return
	}
	s.checkedOut = false

	if p.closed {
		p.total--
		p.mu.Unlock()
		<-p.slots
		_ = p.closeFn(s.Conn)
		return
	}

	p.idle = append(p.idle, s)
	p.mu.Unlock()
	<-p.slots
}

// WithSession runs fn with a checked-out session and guarantees checkin on
// every exit path, including panics during fn.
func (p *Pool[S]) WithSession(ctx context.Context, fn func(ctx context.Context, conn S) error) error {
	s, err := p.Checkout(ctx)
	if err != nil {
		return err
	}
	defer p.Checkin(s)
	return fn(ctx, s.Conn)
}

// Stats reports current pool accounting, mainly for tests and diagnostics.
type Stats struct {
	Total      int
	Idle       int
	CheckedOut int
}

// Stats returns a snapshot of the pool's accounting.
func (p *Pool[S]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Total:      p.total,
		Idle:       len(p.idle),
		CheckedOut: p.total - len(p.idle),
	}
}

// Close releases all idle sessions and marks the pool closed. Sessions still
// checked out are released as they are checked in.
func (p *Pool[S]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.total -= len(idle)
	p.mu.Unlock()

	var firstErr error
	for _, s := range idle {
		if err := p.closeFn(s.Conn); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
