package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/httputil"
)

// CheckFunc probes a single dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	critical bool
}

// Handler aggregates dependency checks and serves liveness and readiness
// endpoints. Critical check failures flip readiness to 503; non-critical
// failures are reported but do not affect the status code.
type Handler struct {
	mu      sync.RWMutex
	checks  []check
	timeout time.Duration
}

func NewHandler() *Handler {
	return &Handler{timeout: 5 * time.Second}
}

// RegisterCritical adds a check whose failure makes the service not ready.
func (h *Handler) RegisterCritical(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, fn: fn, critical: true})
}

// RegisterNonCritical adds a check that is reported but never fails readiness.
func (h *Handler) RegisterNonCritical(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, fn: fn, critical: false})
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type report struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// LivenessHandler reports process liveness only. It never touches dependencies.
func (h *Handler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, report{Status: "ok"})
}

// ReadinessHandler runs all registered checks and reports per-dependency status.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.mu.RLock()
	checks := make([]check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	results := make(map[string]checkResult, len(checks))
	ready := true

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, c := range checks {
		wg.Add(1)
		go func(c check) {
			defer wg.Done()
			err := c.fn(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[c.name] = checkResult{Status: "down", Error: err.Error()}
				if c.critical {
					ready = false
				}
				return
			}
			results[c.name] = checkResult{Status: "up"}
		}(c)
	}
	wg.Wait()

	status := http.StatusOK
	rep := report{Status: "ready", Checks: results}
	if !ready {
		status = http.StatusServiceUnavailable
		rep.Status = "not ready"
	}
	httputil.WriteJSON(w, status, rep)
}
