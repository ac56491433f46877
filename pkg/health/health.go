// Package health tracks per-backend readiness for the gateway and serves
// HTTP health check handlers. A backend is registered when its toolkit is
// configured and marked ready once its connection pool probe succeeds; the
// gateway as a whole is ready only when every registered backend is.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Backend state names as reported in the readiness body.
const (
	StateStarting = "starting"
	StateReady    = "ready"
	StateDraining = "draining"
)

// Checker tracks which backends have passed their startup probe.
// It is safe for concurrent use.
type Checker struct {
	mu       sync.RWMutex
	draining bool
	backends map[string]bool
}

// NewChecker creates a Checker with no backends registered.
func NewChecker() *Checker {
	return &Checker{backends: make(map[string]bool)}
}

// Register adds a backend in the starting state. Registering an already
// ready backend resets it to starting.
func (c *Checker) Register(backend string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends[backend] = false
}

// SetBackendReady marks one backend's pool probe as succeeded. Unregistered
// backends are registered ready.
func (c *Checker) SetBackendReady(backend string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends[backend] = true
}

// SetDraining transitions the gateway to draining. Draining is terminal:
// backend readiness no longer matters.
func (c *Checker) SetDraining() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draining = true
}

// IsReady returns true when at least one backend is registered, every
// registered backend is ready, and the gateway is not draining.
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready()
}

func (c *Checker) ready() bool {
	if c.draining || len(c.backends) == 0 {
		return false
	}
	for _, ok := range c.backends {
		if !ok {
			return false
		}
	}
	return true
}

// State returns the gateway state as a human-readable string.
func (c *Checker) State() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.draining:
		return StateDraining
	case c.ready():
		return StateReady
	default:
		return StateStarting
	}
}

// Backends returns the per-backend state names.
func (c *Checker) Backends() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.backends))
	for name, ok := range c.backends {
		switch {
		case c.draining:
			out[name] = StateDraining
		case ok:
			out[name] = StateReady
		default:
			out[name] = StateStarting
		}
	}
	return out
}

// healthResponse is the JSON body returned by health endpoints.
type healthResponse struct {
	Status   string            `json:"status"`
	Backends map[string]string `json:"backends,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
// Use this for K8s livenessProbe (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when every
// backend is ready and 503 otherwise. The body names each backend's state
// so a failing readiness probe identifies which backend is not up.
// Use this for K8s readinessProbe (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: c.State(), Backends: c.Backends()}
		if c.IsReady() {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
