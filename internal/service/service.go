package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/logger"
	"github.com/lewtip97/fives-app/internal/predict"
	"github.com/lewtip97/fives-app/internal/stats"
)

const tracerName = "github.com/lewtip97/fives-app/internal/service"

// Repository is everything the service reads and writes.
type Repository interface {
	predict.HistorySource
	stats.StatStore

	LoadMatches(ctx context.Context, scope league.Scope) ([]league.Match, error)
	LoadAppearances(ctx context.Context, matchIDs []uuid.UUID) ([]league.Appearance, error)
	LoadAllAppearances(ctx context.Context) ([]league.Appearance, error)

	PlayerStatsForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]league.PlayerGameweekStat, error)
	PlayerSeasonStatsForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]league.PlayerSeasonStat, error)
	TeamStatsForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]league.TeamStat, error)
}

type Service struct {
	repo     Repository
	orch     *stats.Orchestrator
	composer *predict.Composer
	log      *logger.Logger
	tracer   trace.Tracer

	mu    sync.Mutex
	locks map[string]*scopeLock
}

type scopeLock struct {
	mu   sync.Mutex
	refs int
}

func New(repo Repository, orch *stats.Orchestrator, composer *predict.Composer, baseLog *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		orch:     orch,
		composer: composer,
		log:      baseLog.With("component", "service"),
		tracer:   otel.Tracer(tracerName),
		locks:    make(map[string]*scopeLock),
	}
}

// lockScope blocks until no other recalculation holds scope. The returned
// func releases it; an entry is dropped once nobody holds or waits on it.
func (s *Service) lockScope(scope league.Scope) func() {
	key := scope.String()
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &scopeLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Recalculate rebuilds the derived stats for scope from the match history.
// Concurrent calls for the same scope run one after another.
func (s *Service) Recalculate(ctx context.Context, scope league.Scope) (stats.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "stats.Recalculate", trace.WithAttributes(
		attribute.String("fives.scope", scope.String()),
	))
	defer span.End()

	summary, err := s.recalculate(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats.Summary{}, err
	}
	span.SetAttributes(
		attribute.Int("fives.player_groups", summary.PlayerGroups),
		attribute.Int("fives.team_groups", summary.TeamGroups),
		attribute.Int("fives.skipped", len(summary.Skipped)),
	)
	return summary, nil
}

func (s *Service) recalculate(ctx context.Context, scope league.Scope) (stats.Summary, error) {
	if scope.TeamID != uuid.Nil {
		if _, err := s.repo.GetTeam(ctx, scope.TeamID); err != nil {
			return stats.Summary{}, err
		}
	}

	unlock := s.lockScope(scope)
	defer unlock()

	matches, err := s.repo.LoadMatches(ctx, scope)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("loading matches: %w", err)
	}

	var apps []league.Appearance
	if scope.IsAll() {
		apps, err = s.repo.LoadAllAppearances(ctx)
	} else {
		ids := make([]uuid.UUID, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		apps, err = s.repo.LoadAppearances(ctx, ids)
	}
	if err != nil {
		return stats.Summary{}, fmt.Errorf("loading appearances: %w", err)
	}

	s.log.Debug("recalculating", "scope", scope.String(), "matches", len(matches), "appearances", len(apps))
	res := stats.Aggregate(matches, apps)
	return s.orch.Apply(ctx, scope, res)
}

func (s *Service) Predict(ctx context.Context, req predict.Request) (*predict.Prediction, error) {
	ctx, span := s.tracer.Start(ctx, "predict.Predict", trace.WithAttributes(
		attribute.String("fives.team_id", req.TeamID.String()),
		attribute.String("fives.opponent_id", req.OpponentID.String()),
		attribute.Int("fives.lineup_size", len(req.Lineup)),
	))
	defer span.End()

	out, err := s.composer.Predict(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("fives.models_used", len(out.Metadata.ModelsUsed)))
	return out, nil
}

type PlayerStats struct {
	TeamID    uuid.UUID                   `json:"team_id"`
	Gameweeks []league.PlayerGameweekStat `json:"gameweeks"`
	Seasons   []league.PlayerSeasonStat   `json:"seasons"`
}

// PlayerStats returns the stored per-player rows for a team.
func (s *Service) PlayerStats(ctx context.Context, teamID uuid.UUID, season string) (PlayerStats, error) {
	if _, err := s.repo.GetTeam(ctx, teamID); err != nil {
		return PlayerStats{}, err
	}
	weeks, err := s.repo.PlayerStatsForTeam(ctx, teamID, season)
	if err != nil {
		return PlayerStats{}, err
	}
	seasons, err := s.repo.PlayerSeasonStatsForTeam(ctx, teamID, season)
	if err != nil {
		return PlayerStats{}, err
	}
	return PlayerStats{
		TeamID:    teamID,
		Gameweeks: orEmpty(weeks),
		Seasons:   orEmpty(seasons),
	}, nil
}

func (s *Service) TeamStats(ctx context.Context, teamID uuid.UUID, season string) ([]league.TeamStat, error) {
	if _, err := s.repo.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	rows, err := s.repo.TeamStatsForTeam(ctx, teamID, season)
	if err != nil {
		return nil, err
	}
	return orEmpty(rows), nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
