package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fairness/internal/domain/dgbdt"
	"github.com/okian/fairness/internal/domain/scoring"
	"github.com/okian/fairness/internal/integrity"
)

// ModelHandler handles model inspection and rotation.
type ModelHandler struct {
	deps ModelProvider
}

// NewModelHandler creates a new model handler.
func NewModelHandler(deps ModelProvider) *ModelHandler {
	return &ModelHandler{deps: deps}
}

type modelResponse struct {
	ModelHash   string          `json:"model_hash"`
	Fingerprint string          `json:"fingerprint"`
	Profile     scoring.Profile `json:"profile"`
	Trees       int             `json:"trees"`
	Nodes       int             `json:"nodes"`
}

type reloadRequest struct {
	ExpectedHash string `json:"expected_hash"`
}

// HandleGetModel handles GET /model.
func (h *ModelHandler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.describe())
}

// HandleReload handles POST /model/reload. The model file is re-verified
// against the supplied pin; on rejection the active model is unchanged.
func (h *ModelHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.reload_model"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req reloadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Reload(r.Context(), req.ExpectedHash); err != nil {
		switch {
		case errors.Is(err, integrity.ErrMissingPin), errors.Is(err, integrity.ErrInvalidPin):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		case errors.Is(err, integrity.ErrIntegrity), errors.Is(err, dgbdt.ErrModelFormat):
			writeError(w, http.StatusUnprocessableEntity, "model_rejected", WrapKind(op, ErrRejected, err))
		default:
			writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, h.describe())
}

func (h *ModelHandler) describe() modelResponse {
	out := modelResponse{ModelHash: h.deps.ModelHash(), Fingerprint: h.deps.Fingerprint()}
	if fm := h.deps.Fairness(); fm != nil {
		out.Profile = fm.Profile()
		if m := fm.Model(); m != nil {
			out.Trees = len(m.Trees)
			out.Nodes = m.NodeCount()
		}
	}
	return out
}
