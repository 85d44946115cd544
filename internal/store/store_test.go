package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/store"
	"github.com/lewtip97/fives-app/internal/store/storetest"
)

func TestHistoryReads(t *testing.T) {
	ctx := context.Background()
	s := storetest.Store(t)

	team := storetest.SeedTeam(t, s, "Five Alive")
	other := storetest.SeedTeam(t, s, "Elsewhere")
	opp := storetest.SeedOpponent(t, s, team.ID, "Net Results")
	alice := storetest.SeedPlayer(t, s, team.ID, "Alice")
	bob := storetest.SeedPlayer(t, s, team.ID, "Bob")

	var matches []league.Match
	for gw := 1; gw <= 6; gw++ {
		m := storetest.SeedMatch(t, s, team.ID, opp.ID, "2024", gw, gw%3, 1)
		matches = append(matches, m)
		storetest.SeedAppearance(t, s, m.ID, alice.ID, gw%2)
	}
	storetest.SeedMatch(t, s, other.ID, uuid.New(), "2024", 1, 2, 2)
	storetest.SeedAppearance(t, s, matches[0].ID, bob.ID, 0)

	got, err := s.GetTeam(ctx, team.ID)
	if err != nil || got.Name != "Five Alive" {
		t.Fatalf("GetTeam = %+v, %v", got, err)
	}
	if _, err := s.GetTeam(ctx, uuid.New()); !errors.Is(err, league.ErrNotFound) {
		t.Fatalf("GetTeam(unknown) err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetOpponent(ctx, uuid.New()); !errors.Is(err, league.ErrNotFound) {
		t.Fatalf("GetOpponent(unknown) err = %v, want ErrNotFound", err)
	}

	players, err := s.GetPlayers(ctx, []uuid.UUID{alice.ID, uuid.New()})
	if err != nil || len(players) != 1 || players[0].ID != alice.ID {
		t.Fatalf("GetPlayers = %+v, %v", players, err)
	}

	recent, err := s.RecentTeamMatches(ctx, team.ID, 5)
	if err != nil {
		t.Fatalf("RecentTeamMatches: %v", err)
	}
	if len(recent) != 5 || recent[0].Gameweek != 6 || recent[4].Gameweek != 2 {
		t.Fatalf("recent gameweeks wrong: %+v", recent)
	}

	h2h, err := s.MatchesAgainst(ctx, team.ID, opp.ID)
	if err != nil || len(h2h) != 6 || h2h[0].Gameweek != 1 {
		t.Fatalf("MatchesAgainst = %d rows, %v", len(h2h), err)
	}

	apps, err := s.RecentAppearances(ctx, alice.ID, team.ID, 3)
	if err != nil {
		t.Fatalf("RecentAppearances: %v", err)
	}
	if len(apps) != 3 || apps[0].MatchID != matches[5].ID {
		t.Fatalf("RecentAppearances = %+v", apps)
	}

	scoped, err := s.LoadMatches(ctx, league.Scope{TeamID: team.ID})
	if err != nil || len(scoped) != 6 {
		t.Fatalf("LoadMatches(team) = %d, %v", len(scoped), err)
	}
	all, err := s.LoadMatches(ctx, league.Scope{})
	if err != nil || len(all) != 7 {
		t.Fatalf("LoadMatches(all) = %d, %v", len(all), err)
	}
	none, err := s.LoadMatches(ctx, league.Scope{Season: "1999"})
	if err != nil || len(none) != 0 {
		t.Fatalf("LoadMatches(1999) = %d, %v", len(none), err)
	}

	ids := make([]uuid.UUID, 0, len(scoped))
	for _, m := range scoped {
		ids = append(ids, m.ID)
	}
	loaded, err := s.LoadAppearances(ctx, ids)
	if err != nil || len(loaded) != 7 {
		t.Fatalf("LoadAppearances = %d, %v", len(loaded), err)
	}
}

func TestReplaceStatsIsPerKey(t *testing.T) {
	ctx := context.Background()
	s := storetest.Store(t)

	team, player, other := uuid.New(), uuid.New(), uuid.New()
	k := league.PlayerKey{PlayerID: player, TeamID: team, Season: "2024"}
	kOther := league.PlayerKey{PlayerID: other, TeamID: team, Season: "2024"}

	first := []league.PlayerGameweekStat{
		{PlayerID: player, TeamID: team, Season: "2024", Gameweek: 1, Goals: 1, CumulativeGoals: 1},
		{PlayerID: player, TeamID: team, Season: "2024", Gameweek: 2, Goals: 2, CumulativeGoals: 3},
	}
	if err := s.ReplacePlayerStats(ctx, k, first); err != nil {
		t.Fatalf("ReplacePlayerStats: %v", err)
	}
	if err := s.ReplacePlayerStats(ctx, kOther, []league.PlayerGameweekStat{
		{PlayerID: other, TeamID: team, Season: "2024", Gameweek: 1, Goals: 4, CumulativeGoals: 4},
	}); err != nil {
		t.Fatalf("ReplacePlayerStats(other): %v", err)
	}

	second := []league.PlayerGameweekStat{
		{PlayerID: player, TeamID: team, Season: "2024", Gameweek: 3, Goals: 1, CumulativeGoals: 1},
	}
	if err := s.ReplacePlayerStats(ctx, k, second); err != nil {
		t.Fatalf("ReplacePlayerStats(second): %v", err)
	}

	rows, err := s.PlayerStatsForTeam(ctx, team, "")
	if err != nil {
		t.Fatalf("PlayerStatsForTeam: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (one per key)", len(rows))
	}
	for _, r := range rows {
		if r.PlayerID == player && r.Gameweek != 3 {
			t.Fatalf("old rows for replaced key survived: %+v", r)
		}
	}

	keys, err := s.PlayerStatKeys(ctx, league.Scope{TeamID: team})
	if err != nil || len(keys) != 2 {
		t.Fatalf("PlayerStatKeys = %v, %v", keys, err)
	}
	if err := s.DeletePlayerStats(ctx, kOther); err != nil {
		t.Fatalf("DeletePlayerStats: %v", err)
	}
	keys, err = s.PlayerStatKeys(ctx, league.Scope{})
	if err != nil || len(keys) != 1 || keys[0] != k {
		t.Fatalf("PlayerStatKeys after delete = %v, %v", keys, err)
	}
}

// A failed insert must leave the key's previous rows in place.
func TestReplaceRollsBackOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	s := storetest.Store(t)
	team, player := uuid.New(), uuid.New()

	tk := league.TeamKey{TeamID: team, Season: "2024"}
	prior := []league.TeamStat{{TeamID: team, Season: "2024", Gameweek: 1, GamesPlayed: 1, Wins: 1, WinRate: 1}}
	if err := s.ReplaceTeamStats(ctx, tk, prior); err != nil {
		t.Fatalf("ReplaceTeamStats: %v", err)
	}
	clash := []league.TeamStat{
		{TeamID: team, Season: "2024", Gameweek: 2, GamesPlayed: 2},
		{TeamID: team, Season: "2024", Gameweek: 2, GamesPlayed: 2},
	}
	if err := s.ReplaceTeamStats(ctx, tk, clash); err == nil {
		t.Fatalf("duplicate gameweek rows should fail the insert")
	}
	teams, err := s.TeamStatsForTeam(ctx, team, "")
	if err != nil {
		t.Fatalf("TeamStatsForTeam: %v", err)
	}
	if len(teams) != 1 || teams[0].Gameweek != 1 || teams[0].Wins != 1 {
		t.Fatalf("team rows after failed replace = %+v, want the prior row", teams)
	}

	pk := league.PlayerKey{PlayerID: player, TeamID: team, Season: "2024"}
	if err := s.ReplacePlayerStats(ctx, pk, []league.PlayerGameweekStat{
		{PlayerID: player, TeamID: team, Season: "2024", Gameweek: 1, Goals: 2, CumulativeGoals: 2},
	}); err != nil {
		t.Fatalf("ReplacePlayerStats: %v", err)
	}
	dup := league.PlayerGameweekStat{PlayerID: player, TeamID: team, Season: "2024", Gameweek: 3, Goals: 1}
	if err := s.ReplacePlayerStats(ctx, pk, []league.PlayerGameweekStat{dup, dup}); err == nil {
		t.Fatalf("duplicate player rows should fail the insert")
	}
	players, err := s.PlayerStatsForTeam(ctx, team, "")
	if err != nil {
		t.Fatalf("PlayerStatsForTeam: %v", err)
	}
	if len(players) != 1 || players[0].Gameweek != 1 || players[0].CumulativeGoals != 2 {
		t.Fatalf("player rows after failed replace = %+v, want the prior row", players)
	}

	if err := s.ReplacePlayerSeasonStats(ctx, pk, []league.PlayerSeasonStat{
		{PlayerID: player, TeamID: team, Season: "2024", Appearances: 3, GoalsScored: 2},
	}); err != nil {
		t.Fatalf("ReplacePlayerSeasonStats: %v", err)
	}
	season := league.PlayerSeasonStat{PlayerID: player, TeamID: team, Season: "2024", Appearances: 4}
	if err := s.ReplacePlayerSeasonStats(ctx, pk, []league.PlayerSeasonStat{season, season}); err == nil {
		t.Fatalf("duplicate season rows should fail the insert")
	}
	seasons, err := s.PlayerSeasonStatsForTeam(ctx, team, "")
	if err != nil {
		t.Fatalf("PlayerSeasonStatsForTeam: %v", err)
	}
	if len(seasons) != 1 || seasons[0].Appearances != 3 {
		t.Fatalf("season rows after failed replace = %+v, want the prior row", seasons)
	}
}

func TestTeamStatKeysRespectScope(t *testing.T) {
	ctx := context.Background()
	s := storetest.Store(t)
	team := uuid.New()

	for _, season := range []string{"2023", "2024"} {
		k := league.TeamKey{TeamID: team, Season: season}
		recs := []league.TeamStat{{TeamID: team, Season: season, Gameweek: 1, GamesPlayed: 1, Wins: 1, WinRate: 1}}
		if err := s.ReplaceTeamStats(ctx, k, recs); err != nil {
			t.Fatalf("ReplaceTeamStats: %v", err)
		}
	}

	keys, err := s.TeamStatKeys(ctx, league.Scope{TeamID: team, Season: "2024"})
	if err != nil || len(keys) != 1 || keys[0].Season != "2024" {
		t.Fatalf("TeamStatKeys = %v, %v", keys, err)
	}
	if err := s.DeleteTeamStats(ctx, league.TeamKey{TeamID: team, Season: "2023"}); err != nil {
		t.Fatalf("DeleteTeamStats: %v", err)
	}
	rows, err := s.TeamStatsForTeam(ctx, team, "")
	if err != nil || len(rows) != 1 || rows[0].Season != "2024" {
		t.Fatalf("TeamStatsForTeam = %+v, %v", rows, err)
	}
}

func TestSeedSample(t *testing.T) {
	ctx := context.Background()
	s := storetest.Store(t)
	spec := store.DefaultSampleSpec()

	team, err := s.SeedSample(ctx, spec)
	if err != nil {
		t.Fatalf("SeedSample: %v", err)
	}
	matches, err := s.LoadMatches(ctx, league.Scope{TeamID: team.ID})
	if err != nil || len(matches) != spec.Gameweeks {
		t.Fatalf("matches = %d, %v", len(matches), err)
	}
	apps, err := s.LoadAllAppearances(ctx)
	if err != nil || len(apps) != spec.Gameweeks*spec.OnPitch {
		t.Fatalf("appearances = %d, %v", len(apps), err)
	}

	goals := map[uuid.UUID]int{}
	for _, a := range apps {
		goals[a.MatchID] += a.Goals
	}
	for _, m := range matches {
		if goals[m.ID] != m.ScoreTeam {
			t.Fatalf("gameweek %d: scorers add to %d, team scored %d", m.Gameweek, goals[m.ID], m.ScoreTeam)
		}
	}

	if _, err := s.SeedSample(ctx, store.SampleSpec{Gameweeks: 1, Squad: 3, OnPitch: 5}); !errors.Is(err, league.ErrInvalidArgument) {
		t.Fatalf("bad spec err = %v", err)
	}
}
