// internal/league/logic.go
package league

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Outcome of a match from the owning team's side.
type Outcome int

const (
	Loss Outcome = iota
	Draw
	Win
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "W"
	case Draw:
		return "D"
	default:
		return "L"
	}
}

// ClassifyOutcome decides the result of a match exactly once.
func ClassifyOutcome(goalsFor, goalsAgainst int) Outcome {
	switch {
	case goalsFor > goalsAgainst:
		return Win
	case goalsFor < goalsAgainst:
		return Loss
	default:
		return Draw
	}
}

func (m Match) Outcome() Outcome {
	return ClassifyOutcome(m.ScoreTeam, m.ScoreOpponent)
}

func (m Match) ScoreLine() string {
	return fmt.Sprintf("%s gw%d: %d - %d", m.Season, m.Gameweek, m.ScoreTeam, m.ScoreOpponent)
}

// Form counts results over a window of matches.
type Form struct {
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
}

func (f Form) Played() int { return f.Wins + f.Draws + f.Losses }

func (f *Form) Add(o Outcome) {
	switch o {
	case Win:
		f.Wins++
	case Draw:
		f.Draws++
	default:
		f.Losses++
	}
}

// MostRecent returns up to n matches, newest first. Ties on PlayedAt are
// broken by the higher gameweek.
func MostRecent(matches []Match, n int) []Match {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.PlayedAt.Equal(b.PlayedAt) {
			return a.PlayedAt.After(b.PlayedAt)
		}
		return a.Gameweek > b.Gameweek
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// RecentForm tallies the n most recent results.
func RecentForm(matches []Match, n int) Form {
	var f Form
	for _, m := range MostRecent(matches, n) {
		f.Add(m.Outcome())
	}
	return f
}

const (
	eloK     = 8.0
	eloStart = 1500.0
)

// OpponentProfile describes an opponent from its meetings with one team.
// Wins/Draws/Losses are from the opponent's side.
type OpponentProfile struct {
	OpponentID uuid.UUID `json:"opponent_id"`
	Meetings   int       `json:"meetings"`
	Wins       int       `json:"wins"`
	Draws      int       `json:"draws"`
	Losses     int       `json:"losses"`
	// Strength is the opponent's expected score against the team after
	// replaying every meeting through an ELO update, in [0,1].
	Strength float64 `json:"strength"`
	// Form is the opponent's share of available points, in [0,1].
	Form float64 `json:"form"`
}

// ProfileOpponent replays head-to-head matches oldest first. With no
// meetings the opponent is rated even: strength and form are 0.5.
func ProfileOpponent(opponentID uuid.UUID, meetings []Match) OpponentProfile {
	p := OpponentProfile{OpponentID: opponentID, Strength: 0.5, Form: 0.5}

	ordered := MostRecent(meetings, -1)
	teamElo, oppElo := eloStart, eloStart
	for i := len(ordered) - 1; i >= 0; i-- {
		m := ordered[i]
		if m.OpponentID != opponentID {
			continue
		}
		p.Meetings++

		expTeam := expectedScore(teamElo, oppElo)
		expOpp := expectedScore(oppElo, teamElo)

		var scoreTeam, scoreOpp float64
		switch m.Outcome() {
		case Win:
			scoreTeam, scoreOpp = 1, 0
			p.Losses++
		case Loss:
			scoreTeam, scoreOpp = 0, 1
			p.Wins++
		default:
			scoreTeam, scoreOpp = 0.5, 0.5
			p.Draws++
		}

		teamElo += eloK * (scoreTeam - expTeam)
		oppElo += eloK * (scoreOpp - expOpp)
	}
	if p.Meetings == 0 {
		return p
	}
	p.Strength = expectedScore(oppElo, teamElo)
	p.Form = float64(3*p.Wins+p.Draws) / float64(3*p.Meetings)
	return p
}

func expectedScore(rating, against float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (against-rating)/400))
}
