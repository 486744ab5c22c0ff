package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/fairness/pkg/metrics"
)

// HealthHandler handles health and metrics requests.
type HealthHandler struct {
	deps ModelProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps ModelProvider) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status    string `json:"status"`
	ModelHash string `json:"model_hash,omitempty"`
}

// HandleHealth handles GET /healthz. It reports 503 until a verified model
// is active.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if h.deps.Fairness() == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", ModelHash: h.deps.ModelHash()})
}

// HandleMetrics serves the custom Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
