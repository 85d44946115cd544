package league

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestClassifyOutcome(t *testing.T) {
	cases := []struct {
		gf, ga int
		want   Outcome
	}{
		{3, 1, Win},
		{0, 0, Draw},
		{2, 2, Draw},
		{1, 4, Loss},
	}
	for _, tc := range cases {
		if got := ClassifyOutcome(tc.gf, tc.ga); got != tc.want {
			t.Errorf("ClassifyOutcome(%d, %d) = %s, want %s", tc.gf, tc.ga, got, tc.want)
		}
	}
}

func TestRecentForm(t *testing.T) {
	base := time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)
	matches := []Match{
		{Gameweek: 1, ScoreTeam: 0, ScoreOpponent: 3, PlayedAt: base},
		{Gameweek: 2, ScoreTeam: 2, ScoreOpponent: 1, PlayedAt: base.AddDate(0, 0, 7)},
		{Gameweek: 3, ScoreTeam: 1, ScoreOpponent: 1, PlayedAt: base.AddDate(0, 0, 14)},
		{Gameweek: 4, ScoreTeam: 5, ScoreOpponent: 0, PlayedAt: base.AddDate(0, 0, 21)},
	}

	got := RecentForm(matches, 3)
	if got != (Form{Wins: 2, Draws: 1}) {
		t.Fatalf("RecentForm(3) = %+v, want 2W 1D", got)
	}
	if got := RecentForm(matches, -1); got.Played() != 4 || got.Losses != 1 {
		t.Fatalf("RecentForm(all) = %+v", got)
	}
	if got := RecentForm(nil, 5); got.Played() != 0 {
		t.Fatalf("RecentForm(nil) = %+v", got)
	}
}

func TestMostRecent_TiesBrokenByGameweek(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	matches := []Match{{Gameweek: 2, PlayedAt: at}, {Gameweek: 9, PlayedAt: at}, {Gameweek: 5, PlayedAt: at}}
	got := MostRecent(matches, 2)
	if len(got) != 2 || got[0].Gameweek != 9 || got[1].Gameweek != 5 {
		t.Fatalf("MostRecent = %+v", got)
	}
	if matches[0].Gameweek != 2 {
		t.Fatalf("input reordered")
	}
}

func TestProfileOpponent(t *testing.T) {
	opp := uuid.New()
	other := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	empty := ProfileOpponent(opp, nil)
	if empty.Strength != 0.5 || empty.Form != 0.5 || empty.Meetings != 0 {
		t.Fatalf("no meetings = %+v, want neutral", empty)
	}

	beaten := ProfileOpponent(opp, []Match{
		{OpponentID: opp, ScoreTeam: 0, ScoreOpponent: 2, PlayedAt: base},
		{OpponentID: opp, ScoreTeam: 1, ScoreOpponent: 3, PlayedAt: base.AddDate(0, 0, 7)},
		{OpponentID: opp, ScoreTeam: 2, ScoreOpponent: 2, PlayedAt: base.AddDate(0, 0, 14)},
		{OpponentID: other, ScoreTeam: 9, ScoreOpponent: 0, PlayedAt: base.AddDate(0, 0, 21)},
	})
	if beaten.Meetings != 3 || beaten.Wins != 2 || beaten.Draws != 1 || beaten.Losses != 0 {
		t.Fatalf("tally = %+v", beaten)
	}
	if beaten.Strength <= 0.5 || beaten.Strength >= 1 {
		t.Fatalf("strength = %v, want in (0.5, 1)", beaten.Strength)
	}
	if want := 7.0 / 9.0; beaten.Form != want {
		t.Fatalf("form = %v, want %v", beaten.Form, want)
	}
}
