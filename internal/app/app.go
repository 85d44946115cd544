package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lewtip97/fives-app/internal/config"
	"github.com/lewtip97/fives-app/internal/httpapi"
	"github.com/lewtip97/fives-app/internal/observability"
	"github.com/lewtip97/fives-app/internal/platform/logger"
	"github.com/lewtip97/fives-app/internal/predict"
	"github.com/lewtip97/fives-app/internal/service"
	"github.com/lewtip97/fives-app/internal/stats"
	"github.com/lewtip97/fives-app/internal/store"
)

type App struct {
	Log     *logger.Logger
	Config  *config.Config
	Store   *store.Store
	Service *service.Service

	server       *http.Server
	otelShutdown observability.Shutdown
}

// New loads config and wires the store, model registry and service. The
// HTTP server is built but not started.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown := observability.InitTracing(ctx, log, cfg.Tracing, cfg.Env)

	st, err := store.NewStore(ctx, cfg.Database.DSN, log, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Duration,
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	models, err := predict.LoadRegistry(ctx, cfg.Models.Dir, log)
	if err != nil {
		_ = st.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	svc := service.New(st,
		stats.NewOrchestrator(st, log, stats.WithPurgeVanished(cfg.Stats.PurgeVanished)),
		predict.NewComposer(st, models, log,
			predict.WithRecentWindow(cfg.Prediction.RecentWindow),
			predict.WithOutfieldPlayers(cfg.Prediction.OutfieldPlayers),
		),
		log,
	)

	return &App{
		Log:          log,
		Config:       cfg,
		Store:        st,
		Service:      svc,
		server:       httpapi.NewServer(cfg, log, svc, st),
		otelShutdown: shutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("http server listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		a.Log.Info("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) Close(ctx context.Context) {
	if err := a.otelShutdown(ctx); err != nil {
		a.Log.Warn("otel shutdown failed", "error", err)
	}
	if err := a.Store.Close(); err != nil {
		a.Log.Warn("closing database failed", "error", err)
	}
	a.Log.Sync()
}
