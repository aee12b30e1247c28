package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// readinessCheckTimeout bounds each dependency check on /readyz.
const readinessCheckTimeout = 2 * time.Second

// CheckFunc probes one dependency. A non-nil error marks the server not ready.
type CheckFunc func(ctx context.Context) error

// HealthChecker serves /healthz, /readyz and /healthz/detailed.
type HealthChecker struct {
	ready   atomic.Bool
	sc      *ServerContext
	started time.Time
	version string

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealthChecker creates a HealthChecker that starts out ready. sc may be
// nil in tests.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		sc:      sc,
		started: time.Now(),
		version: version,
		checks:  make(map[string]CheckFunc),
	}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness, e.g. while the listener starts or drains.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the flag set by SetReady.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// AddCheck registers a dependency probe reported under name on /readyz.
func (h *HealthChecker) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Version  string `json:"version,omitempty"`
	Booking  bool   `json:"booking"`
	Declines bool   `json:"declines"`
}

// status is the overall state before dependency checks: not ready wins over
// shutting down.
func (h *HealthChecker) status() string {
	switch {
	case !h.ready.Load():
		return healthStatusNotReady
	case h.sc != nil && h.sc.IsShutdown():
		return healthStatusShuttingDown
	}
	return healthStatusOK
}

// runChecks evaluates the built-in and registered checks.
func (h *HealthChecker) runChecks(ctx context.Context) (map[string]string, bool) {
	results := map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK}
	ok := true

	if !h.ready.Load() {
		results["ready"], ok = healthStatusNotReady, false
	}
	if h.sc != nil && h.sc.IsShutdown() {
		results["shutdown"], ok = healthStatusShuttingDown, false
	}
	if h.sc != nil && h.sc.BookingService() == nil {
		results["booking"], ok = healthStatusNotReady, false
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]CheckFunc, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	for i, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, readinessCheckTimeout)
		err := checks[i](checkCtx)
		cancel()
		if err != nil {
			results[name], ok = err.Error(), false
			continue
		}
		results[name] = healthStatusOK
	}
	return results, ok
}

func writeHealth(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler answers ok while the process is serving requests.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers 503 until the booking service is wired and every
// registered check passes.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.runChecks(r.Context())
		if !ok {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler reports uptime, version and which services are wired.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := DetailedHealthResponse{
			Status:  h.status(),
			Uptime:  time.Since(h.started).Truncate(time.Second).String(),
			Version: h.version,
		}
		if h.sc != nil {
			resp.Booking = h.sc.BookingService() != nil
			resp.Declines = h.sc.HasDeclineScanner()
		}

		code := http.StatusOK
		if resp.Status != healthStatusOK {
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, resp)
	})
}

// RegisterHealthEndpoints mounts the probes on r.
func (h *HealthChecker) RegisterHealthEndpoints(r chi.Router) {
	r.Method(http.MethodGet, "/healthz", h.LivenessHandler())
	r.Method(http.MethodGet, "/readyz", h.ReadinessHandler())
	r.Method(http.MethodGet, "/healthz/detailed", h.DetailedHealthHandler())
}
