// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/scoring"
	"github.com/okian/fairness/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RoundScorer
	ModelProvider
	StatsProvider
}

// RoundScorer scores and ranks one complete round.
type RoundScorer interface {
	ScoreRound(ctx context.Context, batch []model.ValidatorMetrics) (types.Round, error)
}

// ModelProvider exposes and rotates the active model.
type ModelProvider interface {
	ModelHash() string
	Fingerprint() string
	Fairness() *scoring.FairnessModel
	Reload(ctx context.Context, expectedHash string) error
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	roundsHandler *RoundsHandler
	modelHandler  *ModelHandler
}

// NewServer creates a new API server with all handlers. maxRoundSize caps
// the validators accepted per round.
func NewServer(deps Dependencies, maxRoundSize int) *Server {
	return &Server{
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		roundsHandler: NewRoundsHandler(deps, maxRoundSize),
		modelHandler:  NewModelHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rounds", MetricsMiddleware(s.roundsHandler.HandlePostRound, "rounds"))
	mux.HandleFunc("/model", MetricsMiddleware(s.modelHandler.HandleGetModel, "model"))
	mux.HandleFunc("/model/reload", MetricsMiddleware(s.modelHandler.HandleReload, "model_reload"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
