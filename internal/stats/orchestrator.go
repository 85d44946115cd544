package stats

import (
	"context"
	"fmt"

	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/logger"
)

// StatStore persists derived records. Each Replace call must delete every
// record stored under the key and insert recs as one transaction.
type StatStore interface {
	ReplacePlayerStats(ctx context.Context, key league.PlayerKey, recs []league.PlayerGameweekStat) error
	ReplaceTeamStats(ctx context.Context, key league.TeamKey, recs []league.TeamStat) error
	ReplacePlayerSeasonStats(ctx context.Context, key league.PlayerKey, recs []league.PlayerSeasonStat) error

	PlayerStatKeys(ctx context.Context, scope league.Scope) ([]league.PlayerKey, error)
	TeamStatKeys(ctx context.Context, scope league.Scope) ([]league.TeamKey, error)
	PlayerSeasonStatKeys(ctx context.Context, scope league.Scope) ([]league.PlayerKey, error)

	DeletePlayerStats(ctx context.Context, key league.PlayerKey) error
	DeleteTeamStats(ctx context.Context, key league.TeamKey) error
	DeletePlayerSeasonStats(ctx context.Context, key league.PlayerKey) error
}

// Summary reports what a recalculation touched.
type Summary struct {
	Scope         string       `json:"scope"`
	PlayerGroups  int          `json:"player_groups"`
	TeamGroups    int          `json:"team_groups"`
	SeasonGroups  int          `json:"season_groups"`
	PlayerRecords int          `json:"player_records"`
	TeamRecords   int          `json:"team_records"`
	SeasonRecords int          `json:"season_records"`
	Purged        int          `json:"purged"`
	Skipped       []Diagnostic `json:"skipped,omitempty"`
}

func (s Summary) Message() string {
	msg := fmt.Sprintf("Generated stats for %d player-season combinations and %d team-season combinations",
		s.PlayerGroups, s.TeamGroups)
	if s.Purged > 0 {
		msg += fmt.Sprintf(", purged %d stale groups", s.Purged)
	}
	if len(s.Skipped) > 0 {
		msg += fmt.Sprintf(", skipped %d records", len(s.Skipped))
	}
	return msg
}

type Orchestrator struct {
	store         StatStore
	log           *logger.Logger
	purgeVanished bool
}

type Option func(*Orchestrator)

// WithPurgeVanished controls whether groups stored inside the scope but
// missing from a new aggregation are deleted.
func WithPurgeVanished(on bool) Option {
	return func(o *Orchestrator) { o.purgeVanished = on }
}

func NewOrchestrator(store StatStore, baseLog *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		log:           baseLog.With("component", "stats.Orchestrator"),
		purgeVanished: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Apply stores res as the derived stats for scope, key by key. The first
// storage failure aborts the run and is returned; keys applied before it
// keep their new values and the failing key keeps its old ones.
func (o *Orchestrator) Apply(ctx context.Context, scope league.Scope, res Result) (Summary, error) {
	sum := Summary{Scope: scope.String(), Skipped: res.Diagnostics}
	for _, d := range res.Diagnostics {
		o.log.Warn("skipped record", "scope", sum.Scope, "kind", d.Kind, "id", d.ID, "reason", d.Reason)
	}

	playerKeys, players := groupPlayerStats(res.Players)
	teamKeys, teams := groupTeamStats(res.Teams)
	seasonKeys, seasons := groupSeasonStats(res.Seasons)

	if len(playerKeys)+len(teamKeys)+len(seasonKeys) == 0 {
		o.log.Warn("no stats to insert", "scope", sum.Scope)
	}

	for _, k := range playerKeys {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		recs := players[k]
		if err := o.store.ReplacePlayerStats(ctx, k, recs); err != nil {
			return sum, fmt.Errorf("replacing player stats %s: %w", k, err)
		}
		sum.PlayerGroups++
		sum.PlayerRecords += len(recs)
	}
	for _, k := range teamKeys {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		recs := teams[k]
		if err := o.store.ReplaceTeamStats(ctx, k, recs); err != nil {
			return sum, fmt.Errorf("replacing team stats %s: %w", k, err)
		}
		sum.TeamGroups++
		sum.TeamRecords += len(recs)
	}
	for _, k := range seasonKeys {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		recs := seasons[k]
		if err := o.store.ReplacePlayerSeasonStats(ctx, k, recs); err != nil {
			return sum, fmt.Errorf("replacing player season stats %s: %w", k, err)
		}
		sum.SeasonGroups++
		sum.SeasonRecords += len(recs)
	}

	if o.purgeVanished {
		purged, err := o.purge(ctx, scope, players, teams, seasons)
		sum.Purged = purged
		if err != nil {
			return sum, err
		}
	}

	o.log.Info("stats recalculated",
		"scope", sum.Scope,
		"player_groups", sum.PlayerGroups,
		"team_groups", sum.TeamGroups,
		"season_groups", sum.SeasonGroups,
		"purged", sum.Purged,
		"skipped", len(sum.Skipped),
	)
	return sum, nil
}

func (o *Orchestrator) purge(
	ctx context.Context,
	scope league.Scope,
	players map[league.PlayerKey][]league.PlayerGameweekStat,
	teams map[league.TeamKey][]league.TeamStat,
	seasons map[league.PlayerKey][]league.PlayerSeasonStat,
) (int, error) {
	purged := 0

	stored, err := o.store.PlayerStatKeys(ctx, scope)
	if err != nil {
		return purged, fmt.Errorf("listing player stat keys: %w", err)
	}
	for _, k := range stored {
		if _, ok := players[k]; ok || !scope.Contains(k.TeamID, k.Season) {
			continue
		}
		if err := o.store.DeletePlayerStats(ctx, k); err != nil {
			return purged, fmt.Errorf("purging player stats %s: %w", k, err)
		}
		o.log.Info("purged stale player stats", "key", k.String())
		purged++
	}

	storedTeams, err := o.store.TeamStatKeys(ctx, scope)
	if err != nil {
		return purged, fmt.Errorf("listing team stat keys: %w", err)
	}
	for _, k := range storedTeams {
		if _, ok := teams[k]; ok || !scope.Contains(k.TeamID, k.Season) {
			continue
		}
		if err := o.store.DeleteTeamStats(ctx, k); err != nil {
			return purged, fmt.Errorf("purging team stats %s: %w", k, err)
		}
		o.log.Info("purged stale team stats", "key", k.String())
		purged++
	}

	storedSeasons, err := o.store.PlayerSeasonStatKeys(ctx, scope)
	if err != nil {
		return purged, fmt.Errorf("listing player season stat keys: %w", err)
	}
	for _, k := range storedSeasons {
		if _, ok := seasons[k]; ok || !scope.Contains(k.TeamID, k.Season) {
			continue
		}
		if err := o.store.DeletePlayerSeasonStats(ctx, k); err != nil {
			return purged, fmt.Errorf("purging player season stats %s: %w", k, err)
		}
		purged++
	}
	return purged, nil
}

func groupPlayerStats(recs []league.PlayerGameweekStat) ([]league.PlayerKey, map[league.PlayerKey][]league.PlayerGameweekStat) {
	var keys []league.PlayerKey
	out := make(map[league.PlayerKey][]league.PlayerGameweekStat)
	for _, r := range recs {
		k := r.Key()
		if _, ok := out[k]; !ok {
			keys = append(keys, k)
		}
		out[k] = append(out[k], r)
	}
	return keys, out
}

func groupTeamStats(recs []league.TeamStat) ([]league.TeamKey, map[league.TeamKey][]league.TeamStat) {
	var keys []league.TeamKey
	out := make(map[league.TeamKey][]league.TeamStat)
	for _, r := range recs {
		k := r.Key()
		if _, ok := out[k]; !ok {
			keys = append(keys, k)
		}
		out[k] = append(out[k], r)
	}
	return keys, out
}

func groupSeasonStats(recs []league.PlayerSeasonStat) ([]league.PlayerKey, map[league.PlayerKey][]league.PlayerSeasonStat) {
	var keys []league.PlayerKey
	out := make(map[league.PlayerKey][]league.PlayerSeasonStat)
	for _, r := range recs {
		k := r.Key()
		if _, ok := out[k]; !ok {
			keys = append(keys, k)
		}
		out[k] = append(out[k], r)
	}
	return keys, out
}
