// Package storetest opens throwaway SQLite-backed stores and seeds them.
package storetest

import (
	"context"
	"testing"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/logger"
	"github.com/lewtip97/fives-app/internal/store"
)

// Store returns a migrated in-memory store private to the test.
func Store(tb testing.TB) *store.Store {
	tb.Helper()
	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DSN:        ":memory:",
		DriverName: "sqlite",
	}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	s := store.New(db, logger.NewNop())
	if err := s.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return s
}

func SeedTeam(tb testing.TB, s *store.Store, name string) league.Team {
	tb.Helper()
	t := league.Team{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := s.DB.Create(&t).Error; err != nil {
		tb.Fatalf("seed team: %v", err)
	}
	return t
}

func SeedOpponent(tb testing.TB, s *store.Store, teamID uuid.UUID, name string) league.Opponent {
	tb.Helper()
	o := league.Opponent{ID: uuid.New(), TeamID: teamID, Name: name}
	if err := s.DB.Create(&o).Error; err != nil {
		tb.Fatalf("seed opponent: %v", err)
	}
	return o
}

// SeedPlayer adds an outfield player.
func SeedPlayer(tb testing.TB, s *store.Store, teamID uuid.UUID, name string) league.Player {
	tb.Helper()
	return SeedPlayerAt(tb, s, teamID, name, league.PositionOutfield)
}

func SeedPlayerAt(tb testing.TB, s *store.Store, teamID uuid.UUID, name, position string) league.Player {
	tb.Helper()
	p := league.Player{ID: uuid.New(), TeamID: teamID, Name: name, Position: position}
	if err := s.DB.Create(&p).Error; err != nil {
		tb.Fatalf("seed player: %v", err)
	}
	return p
}

// SeedMatch records a result played gameweek weeks after a fixed season start.
func SeedMatch(tb testing.TB, s *store.Store, teamID, opponentID uuid.UUID, season string, gameweek, gf, ga int) league.Match {
	tb.Helper()
	m := league.Match{
		ID:            uuid.New(),
		TeamID:        teamID,
		OpponentID:    opponentID,
		Season:        season,
		Gameweek:      gameweek,
		ScoreTeam:     gf,
		ScoreOpponent: ga,
		PlayedAt:      time.Date(2024, 8, 1, 19, 0, 0, 0, time.UTC).AddDate(0, 0, 7*gameweek),
	}
	if err := s.DB.Create(&m).Error; err != nil {
		tb.Fatalf("seed match: %v", err)
	}
	return m
}

func SeedAppearance(tb testing.TB, s *store.Store, matchID, playerID uuid.UUID, goals int) league.Appearance {
	tb.Helper()
	a := league.Appearance{ID: uuid.New(), MatchID: matchID, PlayerID: playerID, Goals: goals}
	if err := s.DB.Create(&a).Error; err != nil {
		tb.Fatalf("seed appearance: %v", err)
	}
	return a
}
