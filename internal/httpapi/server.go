package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lewtip97/fives-app/internal/config"
	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/logger"
	"github.com/lewtip97/fives-app/internal/predict"
	"github.com/lewtip97/fives-app/internal/service"
	"github.com/lewtip97/fives-app/internal/stats"
)

// Backend is the service surface the routes call.
type Backend interface {
	Recalculate(ctx context.Context, scope league.Scope) (stats.Summary, error)
	Predict(ctx context.Context, req predict.Request) (*predict.Prediction, error)
	PlayerStats(ctx context.Context, teamID uuid.UUID, season string) (service.PlayerStats, error)
	TeamStats(ctx context.Context, teamID uuid.UUID, season string) ([]league.TeamStat, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewServer(cfg *config.Config, log *logger.Logger, backend Backend, db Pinger) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           NewHandler(cfg, log, backend, db),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
	}
}

func NewHandler(cfg *config.Config, log *logger.Logger, backend Backend, db Pinger) http.Handler {
	h := &handlers{
		backend:  backend,
		db:       db,
		log:      log.With("component", "httpapi"),
		maxBytes: cfg.HTTP.MaxRequestBytes,
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware(), accessLogMiddleware(h.log), recoverMiddleware(h.log))

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.readyz).Methods(http.MethodGet)

	r.HandleFunc("/stats/generate", h.generateStats).Methods(http.MethodPost)
	r.HandleFunc("/stats/players/{team_id}", h.playerStats).Methods(http.MethodGet)
	r.HandleFunc("/stats/teams/{team_id}", h.teamStats).Methods(http.MethodGet)
	r.HandleFunc("/predictions", h.createPrediction).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "")
	})
	return r
}
