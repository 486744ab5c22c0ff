package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/fairness/internal/app"
	"github.com/okian/fairness/internal/domain/dgbdt"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/selector"
)

// bytesPerValidator bounds the request body relative to the round size.
const bytesPerValidator = 4 << 10

// RoundsHandler handles round scoring requests.
type RoundsHandler struct {
	deps         RoundScorer
	maxRoundSize int
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps RoundScorer, maxRoundSize int) *RoundsHandler {
	return &RoundsHandler{deps: deps, maxRoundSize: maxRoundSize}
}

type roundRequest struct {
	Validators []model.ValidatorMetrics `json:"validators"`
}

// HandlePostRound handles POST /rounds?top=N. The body carries every
// active validator of the round; the response is the scored round with
// its ranking, optionally cut to the first N positions.
func (h *RoundsHandler) HandlePostRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_round"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	top := 0
	if s := r.URL.Query().Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		top = n
	}

	body := http.MaxBytesReader(w, r.Body, int64(h.maxRoundSize)*bytesPerValidator)
	var req roundRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Validators) > h.maxRoundSize {
		err := fmt.Errorf("%d validators, limit %d", len(req.Validators), h.maxRoundSize)
		writeError(w, http.StatusBadRequest, "limit_exceeded", WrapKind(op, ErrBadRequest, err))
		return
	}

	round, err := h.deps.ScoreRound(r.Context(), req.Validators)
	if err != nil {
		status, code := roundStatus(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}
	if top > 0 {
		ranking, err := selector.TopN(round.Ranking, min(top, len(round.Ranking)))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "incomplete_round", Wrap(op, err))
			return
		}
		round.Ranking = ranking
	}
	writeJSON(w, http.StatusOK, round)
}

func roundStatus(err error) (int, string) {
	switch {
	case errors.Is(err, selector.ErrEmptyRound),
		errors.Is(err, selector.ErrDuplicateValidator),
		errors.Is(err, model.ErrMissingValidatorID),
		errors.Is(err, model.ErrSchemaVersion):
		return http.StatusBadRequest, "invalid_round"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, dgbdt.ErrEvaluationOverflow):
		return http.StatusInternalServerError, "model_corrupted"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
