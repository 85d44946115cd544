package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lewtip97/fives-app/internal/league"
)

// SampleSpec shapes the generated demo history.
type SampleSpec struct {
	TeamName  string
	Season    string
	Gameweeks int
	Squad     int
	OnPitch   int
	Seed      uint64
}

func DefaultSampleSpec() SampleSpec {
	return SampleSpec{
		TeamName:  "Sample FC",
		Season:    "2024",
		Gameweeks: 12,
		Squad:     9,
		OnPitch:   5,
		Seed:      1,
	}
}

var sampleOpponents = []string{"Team A", "Team B", "Team C", "Team D", "Team E"}

// SeedSample writes one team with a squad, opponents and a season of
// results. The same spec always produces the same scores.
func (s *Store) SeedSample(ctx context.Context, spec SampleSpec) (league.Team, error) {
	if spec.Gameweeks < 1 || spec.Squad < 1 || spec.OnPitch < 1 || spec.OnPitch > spec.Squad {
		return league.Team{}, fmt.Errorf("%w: bad sample spec %+v", league.ErrInvalidArgument, spec)
	}
	rng := rand.New(rand.NewPCG(spec.Seed, spec.Seed^0x9e3779b97f4a7c15))

	team := league.Team{ID: uuid.New(), Name: spec.TeamName, CreatedAt: time.Now().UTC()}
	var opponents []league.Opponent
	for _, name := range sampleOpponents {
		opponents = append(opponents, league.Opponent{ID: uuid.New(), TeamID: team.ID, Name: name})
	}
	var players []league.Player
	for i := 0; i < spec.Squad; i++ {
		pos := league.PositionOutfield
		if i == 0 {
			pos = league.PositionGoalkeeper
		}
		players = append(players, league.Player{ID: uuid.New(), TeamID: team.ID, Name: fmt.Sprintf("Player %d", i+1), Position: pos})
	}

	start := time.Date(2024, 8, 1, 19, 0, 0, 0, time.UTC)
	var matches []league.Match
	var apps []league.Appearance
	for week := 1; week <= spec.Gameweeks; week++ {
		gf, ga := sampleScore(rng)
		m := league.Match{
			ID:            uuid.New(),
			TeamID:        team.ID,
			OpponentID:    opponents[rng.IntN(len(opponents))].ID,
			Season:        spec.Season,
			Gameweek:      week,
			ScoreTeam:     gf,
			ScoreOpponent: ga,
			PlayedAt:      start.AddDate(0, 0, 7*week),
		}
		matches = append(matches, m)

		picked := rng.Perm(spec.Squad)[:spec.OnPitch]
		goals := make(map[int]int, len(picked))
		for g := 0; g < gf; g++ {
			goals[picked[rng.IntN(len(picked))]]++
		}
		for _, idx := range picked {
			apps = append(apps, league.Appearance{
				ID:       uuid.New(),
				MatchID:  m.ID,
				PlayerID: players[idx].ID,
				Goals:    goals[idx],
			})
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return fmt.Errorf("inserting team: %w", err)
		}
		if err := tx.Create(&opponents).Error; err != nil {
			return fmt.Errorf("inserting opponents: %w", err)
		}
		if err := tx.Create(&players).Error; err != nil {
			return fmt.Errorf("inserting players: %w", err)
		}
		if err := tx.CreateInBatches(&matches, insertBatch).Error; err != nil {
			return fmt.Errorf("inserting matches: %w", err)
		}
		if err := tx.CreateInBatches(&apps, insertBatch).Error; err != nil {
			return fmt.Errorf("inserting appearances: %w", err)
		}
		return nil
	})
	if err != nil {
		return league.Team{}, err
	}
	s.log.Info("sample data seeded",
		"team_id", team.ID,
		"matches", len(matches),
		"appearances", len(apps),
	)
	return team, nil
}

func sampleScore(rng *rand.Rand) (int, int) {
	switch rng.IntN(3) {
	case 0:
		gf := 1 + rng.IntN(5)
		return gf, rng.IntN(gf)
	case 1:
		ga := 1 + rng.IntN(5)
		return rng.IntN(ga), ga
	default:
		d := rng.IntN(4)
		return d, d
	}
}
