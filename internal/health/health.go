// Package health exposes the quartet process's liveness and readiness
// probes.
//
// Liveness (/healthz) answers for the process itself: serving the request at
// all is the proof, so it always returns 200 along with the time since
// startup. Readiness (/readyz) evaluates every probe registered with
// [Handler.Add] — the bridge registers one for the engine's startup
// announcement and one for the telemetry drain loop — and returns 503 with a
// per-probe breakdown when any of them fails, so an operator can see which
// half of the pipeline stalled.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// probeTimeout is the shared deadline for evaluating all probes of one
// readiness request.
const probeTimeout = 2 * time.Second

// Probe reports nil while its dependency can do useful work. It must respect
// context cancellation.
type Probe func(ctx context.Context) error

// Handler serves the probe endpoints. Probes may be added at any point,
// including after the HTTP server has started; requests observe the set
// registered at evaluation time.
type Handler struct {
	started time.Time

	mu     sync.RWMutex
	probes map[string]Probe
}

// New creates an empty Handler. The liveness uptime clock starts here.
func New() *Handler {
	return &Handler{
		started: time.Now(),
		probes:  make(map[string]Probe),
	}
}

// Add registers probe under name, replacing any earlier probe with the same
// name.
func (h *Handler) Add(name string, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe
}

// probeResult is one probe's entry in the readiness response.
type probeResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Healthz is the liveness endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime_s": time.Since(h.started).Seconds(),
	})
}

// Readyz evaluates every registered probe under one shared deadline. All
// probes are always evaluated, even after the first failure, so the response
// names every unhealthy dependency at once.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	probes := make(map[string]Probe, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	results := make(map[string]probeResult, len(probes))
	ready := true
	for name, probe := range probes {
		if err := probe(ctx); err != nil {
			results[name] = probeResult{Error: err.Error()}
			ready = false
		} else {
			results[name] = probeResult{OK: true}
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status": state,
		"probes": results,
	})
}

// Register mounts both endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
