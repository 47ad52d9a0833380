// Package health exposes the probe endpoints of a lectern server.
//
//   - /healthz — liveness; answers 200 whenever the process can serve HTTP.
//   - /readyz  — readiness; runs the registered [Probe] functions (the
//     transcript store, the deck — whatever the composition root considers
//     a prerequisite for teaching) and answers 503 until all of them pass,
//     so an orchestrator never routes a learner to a server that cannot
//     start a lecture yet.
//
// Responses are JSON: a top-level "status" plus a per-probe map carrying
// each probe's outcome and how long it took.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// defaultProbeTimeout bounds a single readiness probe. A store that takes
// longer than this to answer is not ready, whatever it would eventually say.
const defaultProbeTimeout = 5 * time.Second

// Probe is one named readiness requirement. Run returns nil when the
// dependency can serve a lecture and a descriptive error otherwise. It must
// respect context cancellation.
type Probe struct {
	Name string
	Run  func(ctx context.Context) error
}

// probeResult is the per-probe JSON fragment of a readiness response.
type probeResult struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed"`
}

// report is the JSON body of both endpoints.
type report struct {
	Status string                 `json:"status"`
	Probes map[string]probeResult `json:"probes,omitempty"`
}

// Handler serves the probe endpoints. The probe list is fixed at
// construction; Handler itself is stateless and safe for concurrent use.
type Handler struct {
	timeout time.Duration
	probes  []Probe
}

// Option configures a [Handler].
type Option func(*Handler)

// WithProbeTimeout overrides the per-probe deadline. Tests use this to keep
// cancellation scenarios fast.
func WithProbeTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// New creates a Handler evaluating the given probes, in order, on every
// /readyz request.
func New(probes []Probe, opts ...Option) *Handler {
	h := &Handler{
		timeout: defaultProbeTimeout,
		probes:  make([]Probe, len(probes)),
	}
	copy(h.probes, probes)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Live answers the liveness probe. A process that reaches this handler is
// alive by definition.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok"})
}

// Ready answers the readiness probe: 200 when every probe passes, 503 as
// soon as any fails. All probes run even after a failure so the response
// names everything that is broken, not just the first thing.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	res := report{
		Status: "ok",
		Probes: make(map[string]probeResult, len(h.probes)),
	}
	status := http.StatusOK

	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		start := time.Now()
		err := p.Run(ctx)
		elapsed := time.Since(start)
		cancel()

		pr := probeResult{Status: "ok", Elapsed: elapsed.String()}
		if err != nil {
			pr.Status = "fail"
			pr.Error = err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
		}
		res.Probes[p.Name] = pr
	}

	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Live)
	mux.HandleFunc("GET /readyz", h.Ready)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
