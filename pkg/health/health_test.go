package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestNewChecker_NotReadyWithoutBackends(t *testing.T) {
	hc := NewChecker()
	if hc.IsReady() {
		t.Error("IsReady() = true, want false with no backends registered")
	}
	if hc.State() != StateStarting {
		t.Errorf("State() = %q, want %q", hc.State(), StateStarting)
	}
}

func TestReadiness_RequiresEveryBackend(t *testing.T) {
	hc := NewChecker()
	hc.Register("postgres")
	hc.Register("mongodb")

	hc.SetBackendReady("postgres")
	if hc.IsReady() {
		t.Error("IsReady() = true with mongodb still starting")
	}
	if hc.State() != StateStarting {
		t.Errorf("State() = %q, want %q", hc.State(), StateStarting)
	}

	hc.SetBackendReady("mongodb")
	if !hc.IsReady() {
		t.Error("IsReady() = false with every backend ready")
	}
	if hc.State() != StateReady {
		t.Errorf("State() = %q, want %q", hc.State(), StateReady)
	}
}

func TestSetDraining_IsTerminal(t *testing.T) {
	hc := NewChecker()
	hc.Register("mysql")
	hc.SetBackendReady("mysql")
	hc.SetDraining()

	if hc.IsReady() {
		t.Error("IsReady() = true while draining")
	}
	if hc.State() != StateDraining {
		t.Errorf("State() = %q, want %q", hc.State(), StateDraining)
	}

	// A late probe result must not resurrect a draining gateway.
	hc.SetBackendReady("mysql")
	if hc.IsReady() {
		t.Error("IsReady() = true after SetBackendReady during drain")
	}
}

func TestBackends_ReportsPerBackendState(t *testing.T) {
	hc := NewChecker()
	hc.Register("postgres")
	hc.Register("mongodb")
	hc.SetBackendReady("postgres")

	got := hc.Backends()
	if got["postgres"] != StateReady {
		t.Errorf("postgres state = %q, want %q", got["postgres"], StateReady)
	}
	if got["mongodb"] != StateStarting {
		t.Errorf("mongodb state = %q, want %q", got["mongodb"], StateStarting)
	}

	hc.SetDraining()
	got = hc.Backends()
	for name, state := range got {
		if state != StateDraining {
			t.Errorf("%s state = %q during drain, want %q", name, state, StateDraining)
		}
	}
}

func TestLivenessHandler_AlwaysReturns200(t *testing.T) {
	tests := []struct {
		name  string
		setup func(hc *Checker)
	}{
		{"no backends", func(*Checker) {}},
		{"backend starting", func(hc *Checker) { hc.Register("postgres") }},
		{"ready", func(hc *Checker) { hc.SetBackendReady("postgres") }},
		{"draining", func(hc *Checker) { hc.SetDraining() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker()
			tt.setup(hc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			hc.LivenessHandler().ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			var resp healthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != "ok" {
				t.Errorf("status = %q, want %q", resp.Status, "ok")
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestReadinessHandler_StatusAndBody(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(hc *Checker)
		wantCode     int
		wantStatus   string
		wantBackends map[string]string
	}{
		{
			name: "one backend starting",
			setup: func(hc *Checker) {
				hc.Register("postgres")
				hc.Register("mongodb")
				hc.SetBackendReady("postgres")
			},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   StateStarting,
			wantBackends: map[string]string{"postgres": StateReady, "mongodb": StateStarting},
		},
		{
			name: "all ready",
			setup: func(hc *Checker) {
				hc.Register("postgres")
				hc.SetBackendReady("postgres")
			},
			wantCode:     http.StatusOK,
			wantStatus:   StateReady,
			wantBackends: map[string]string{"postgres": StateReady},
		},
		{
			name: "draining",
			setup: func(hc *Checker) {
				hc.Register("postgres")
				hc.SetBackendReady("postgres")
				hc.SetDraining()
			},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   StateDraining,
			wantBackends: map[string]string{"postgres": StateDraining},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker()
			tt.setup(hc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
			hc.ReadinessHandler().ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}

			var resp healthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("body status = %q, want %q", resp.Status, tt.wantStatus)
			}
			for name, want := range tt.wantBackends {
				if resp.Backends[name] != want {
					t.Errorf("backend %s = %q, want %q", name, resp.Backends[name], want)
				}
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	const goroutines = 100

	hc := NewChecker()
	hc.Register("postgres")
	hc.Register("mysql")

	var wg sync.WaitGroup
	wg.Add(goroutines * 3)

	for range goroutines {
		go func() {
			defer wg.Done()
			hc.SetBackendReady("postgres")
		}()
		go func() {
			defer wg.Done()
			hc.SetBackendReady("mysql")
		}()
		go func() {
			defer wg.Done()
			_ = hc.IsReady()
			_ = hc.Backends()
		}()
	}

	wg.Wait()

	if !hc.IsReady() {
		t.Error("IsReady() = false after all backends marked ready")
	}
}
