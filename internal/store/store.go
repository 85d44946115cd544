package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/logger"
)

// appearanceChunk bounds the IN list when loading appearances for many matches.
const appearanceChunk = 500

// Store wraps the database and provides the match history reads and the
// derived-stat writes.
type Store struct {
	DB  *gorm.DB
	log *logger.Logger
}

type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewStore opens a Postgres connection using the given connection string.
func NewStore(ctx context.Context, connStr string, baseLog *logger.Logger, opts Options) (*Store, error) {
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	// verify early
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("opening gorm: %w", err)
	}
	s := New(db, baseLog)
	s.log.Info("database connected", "dsn", connStr)
	return s, nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB, baseLog *logger.Logger) *Store {
	return &Store{DB: db, log: baseLog.With("component", "store")}
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.DB.WithContext(ctx).AutoMigrate(
		&league.Team{},
		&league.Opponent{},
		&league.Player{},
		&league.Match{},
		&league.Appearance{},
		&league.PlayerGameweekStat{},
		&league.TeamStat{},
		&league.PlayerSeasonStat{},
	)
	if err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	return nil
}

func scoped(db *gorm.DB, scope league.Scope) *gorm.DB {
	if scope.TeamID != uuid.Nil {
		db = db.Where("team_id = ?", scope.TeamID)
	}
	if scope.Season != "" {
		db = db.Where("season = ?", scope.Season)
	}
	return db
}

// LoadMatches fetches every match inside scope.
func (s *Store) LoadMatches(ctx context.Context, scope league.Scope) ([]league.Match, error) {
	var matches []league.Match
	err := scoped(s.DB.WithContext(ctx), scope).
		Order("team_id, season, gameweek, played_at, id").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	return matches, nil
}

// LoadAppearances fetches the appearances recorded for the given matches.
func (s *Store) LoadAppearances(ctx context.Context, matchIDs []uuid.UUID) ([]league.Appearance, error) {
	var out []league.Appearance
	for start := 0; start < len(matchIDs); start += appearanceChunk {
		end := min(start+appearanceChunk, len(matchIDs))
		var chunk []league.Appearance
		err := s.DB.WithContext(ctx).
			Where("match_id IN ?", matchIDs[start:end]).
			Order("match_id, player_id, id").
			Find(&chunk).Error
		if err != nil {
			return nil, fmt.Errorf("querying appearances: %w", err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// LoadAllAppearances fetches every appearance, orphans included, so the
// aggregator can report them.
func (s *Store) LoadAllAppearances(ctx context.Context) ([]league.Appearance, error) {
	var out []league.Appearance
	if err := s.DB.WithContext(ctx).Order("match_id, player_id, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("querying appearances: %w", err)
	}
	return out, nil
}

func notFound(err error, kind string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, league.ErrNotFound)
	}
	return fmt.Errorf("querying %s %s: %w", kind, id, err)
}

func (s *Store) GetTeam(ctx context.Context, id uuid.UUID) (league.Team, error) {
	var t league.Team
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return league.Team{}, notFound(err, "team", id)
	}
	return t, nil
}

func (s *Store) GetTeams(ctx context.Context) ([]league.Team, error) {
	var teams []league.Team
	if err := s.DB.WithContext(ctx).Order("name, id").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	return teams, nil
}

func (s *Store) GetOpponent(ctx context.Context, id uuid.UUID) (league.Opponent, error) {
	var o league.Opponent
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return league.Opponent{}, notFound(err, "opponent", id)
	}
	return o, nil
}

// GetPlayers returns the players that exist among ids; missing ids are
// simply absent from the result.
func (s *Store) GetPlayers(ctx context.Context, ids []uuid.UUID) ([]league.Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var players []league.Player
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&players).Error; err != nil {
		return nil, fmt.Errorf("querying players: %w", err)
	}
	return players, nil
}

// RecentTeamMatches returns the team's n latest matches, newest first.
func (s *Store) RecentTeamMatches(ctx context.Context, teamID uuid.UUID, n int) ([]league.Match, error) {
	var matches []league.Match
	err := s.DB.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("played_at DESC, gameweek DESC").
		Limit(n).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("querying recent matches: %w", err)
	}
	return matches, nil
}

// MatchesAgainst returns every meeting between team and opponent, oldest first.
func (s *Store) MatchesAgainst(ctx context.Context, teamID, opponentID uuid.UUID) ([]league.Match, error) {
	var matches []league.Match
	err := s.DB.WithContext(ctx).
		Where("team_id = ? AND opponent_id = ?", teamID, opponentID).
		Order("played_at, gameweek").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("querying head to head: %w", err)
	}
	return matches, nil
}

// RecentAppearances returns the player's appearances in the team's n latest
// matches that the player featured in, newest first.
func (s *Store) RecentAppearances(ctx context.Context, playerID, teamID uuid.UUID, n int) ([]league.Appearance, error) {
	var apps []league.Appearance
	err := s.DB.WithContext(ctx).
		Select("appearances.*").
		Joins("JOIN matches ON matches.id = appearances.match_id").
		Where("appearances.player_id = ? AND matches.team_id = ?", playerID, teamID).
		Order("matches.played_at DESC, matches.gameweek DESC").
		Limit(n).
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("querying recent appearances: %w", err)
	}
	return apps, nil
}

// PlayerStatsForTeam returns the stored gameweek rows for a team, optionally
// restricted to one season.
func (s *Store) PlayerStatsForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]league.PlayerGameweekStat, error) {
	var rows []league.PlayerGameweekStat
	err := scoped(s.DB.WithContext(ctx), league.Scope{TeamID: teamID, Season: season}).
		Order("season, player_id, gameweek").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying player stats: %w", err)
	}
	return rows, nil
}

func (s *Store) PlayerSeasonStatsForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]league.PlayerSeasonStat, error) {
	var rows []league.PlayerSeasonStat
	err := scoped(s.DB.WithContext(ctx), league.Scope{TeamID: teamID, Season: season}).
		Order("season, goals_scored DESC, player_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying player season stats: %w", err)
	}
	return rows, nil
}

func (s *Store) TeamStatsForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]league.TeamStat, error) {
	var rows []league.TeamStat
	err := scoped(s.DB.WithContext(ctx), league.Scope{TeamID: teamID, Season: season}).
		Order("season, gameweek").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying team stats: %w", err)
	}
	return rows, nil
}
