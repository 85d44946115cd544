package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/logger"
	"github.com/lewtip97/fives-app/internal/predict"
	"github.com/lewtip97/fives-app/internal/stats"
)

type handlers struct {
	backend  Backend
	db       Pinger
	log      *logger.Logger
	maxBytes int64
}

type generateResponse struct {
	Status       string             `json:"status"`
	Message      string             `json:"message"`
	PlayerGroups int                `json:"player_groups"`
	TeamGroups   int                `json:"team_groups"`
	SeasonGroups int                `json:"season_groups"`
	Purged       int                `json:"purged"`
	Skipped      []stats.Diagnostic `json:"skipped"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.log.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// generateStats recalculates derived stats. team_id and season narrow the
// scope; both absent means every team.
func (h *handlers) generateStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := league.Scope{Season: strings.TrimSpace(q.Get("season"))}
	if raw := strings.TrimSpace(q.Get("team_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "invalid team_id"})
			return
		}
		scope.TeamID = id
	}

	sum, err := h.backend.Recalculate(r.Context(), scope)
	if err != nil {
		status := statusFor(err)
		h.log.Error("stats generation failed",
			"request_id", RequestIDFromContext(r.Context()),
			"scope", scope.String(),
			"error", err,
		)
		writeJSON(w, status, statusResponse{Status: "error", Message: err.Error()})
		return
	}

	skipped := sum.Skipped
	if skipped == nil {
		skipped = []stats.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Status:       "success",
		Message:      sum.Message(),
		PlayerGroups: sum.PlayerGroups,
		TeamGroups:   sum.TeamGroups,
		SeasonGroups: sum.SeasonGroups,
		Purged:       sum.Purged,
		Skipped:      skipped,
	})
}

func teamIDVar(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["team_id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid team_id", league.ErrInvalidArgument)
	}
	return id, nil
}

func (h *handlers) playerStats(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamIDVar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.backend.PlayerStats(r.Context(), teamID, strings.TrimSpace(r.URL.Query().Get("season")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) teamStats(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamIDVar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.backend.TeamStats(r.Context(), teamID, strings.TrimSpace(r.URL.Query().Get("season")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team_id": teamID, "gameweeks": rows})
}

func (h *handlers) createPrediction(w http.ResponseWriter, r *http.Request) {
	var req predict.Request
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		if status := statusFor(err); status == http.StatusRequestEntityTooLarge {
			writeError(w, status, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	out, err := h.backend.Predict(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, publicMessage(status, err))
}
