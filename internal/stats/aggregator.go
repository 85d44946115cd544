package stats

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/lewtip97/fives-app/internal/league"
)

const (
	DiagInvalidMatch      = "invalid_match"
	DiagDuplicateMatch    = "duplicate_match"
	DiagInvalidAppearance = "invalid_appearance"
	DiagOrphanAppearance  = "orphan_appearance"
)

// Diagnostic describes an input record that was left out of aggregation.
type Diagnostic struct {
	Kind   string    `json:"kind"`
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Kind, d.ID, d.Reason)
}

// Result is everything derivable from one snapshot of match history.
type Result struct {
	Players     []league.PlayerGameweekStat
	Teams       []league.TeamStat
	Seasons     []league.PlayerSeasonStat
	Diagnostics []Diagnostic
}

type playerWeek struct {
	goals   int
	assists int
	matches map[uuid.UUID]struct{}
}

type playerSeason struct {
	goals   int
	assists int
	matches map[uuid.UUID]league.Match
}

type teamWeek struct {
	games, goalsFor, goalsAgainst int
	form                          league.Form
}

// Aggregate computes every derived stat record implied by the given matches
// and appearances. It never reads previously derived records, so running it
// twice over the same input yields the same output in the same order.
// Records that fail validation are skipped and reported in Diagnostics.
func Aggregate(matches []league.Match, appearances []league.Appearance) Result {
	var res Result

	matchByID := make(map[uuid.UUID]league.Match, len(matches))
	rejected := make(map[uuid.UUID]string)
	for _, m := range matches {
		if reason := validateMatch(m); reason != "" {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagInvalidMatch, ID: m.ID, Reason: reason})
			if m.ID != uuid.Nil {
				rejected[m.ID] = reason
			}
			continue
		}
		if _, dup := matchByID[m.ID]; dup {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagDuplicateMatch, ID: m.ID, Reason: "match id already seen"})
			continue
		}
		matchByID[m.ID] = m
	}

	weeks := make(map[league.PlayerKey]map[int]*playerWeek)
	seasons := make(map[league.PlayerKey]*playerSeason)
	for _, a := range appearances {
		if reason := validateAppearance(a); reason != "" {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagInvalidAppearance, ID: a.ID, Reason: reason})
			continue
		}
		m, ok := matchByID[a.MatchID]
		if !ok {
			reason := fmt.Sprintf("match %s not found", a.MatchID)
			if why, bad := rejected[a.MatchID]; bad {
				reason = fmt.Sprintf("match %s rejected: %s", a.MatchID, why)
			}
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagOrphanAppearance, ID: a.ID, Reason: reason})
			continue
		}

		key := league.PlayerKey{PlayerID: a.PlayerID, TeamID: m.TeamID, Season: m.Season}
		byWeek, ok := weeks[key]
		if !ok {
			byWeek = make(map[int]*playerWeek)
			weeks[key] = byWeek
		}
		w, ok := byWeek[m.Gameweek]
		if !ok {
			w = &playerWeek{matches: make(map[uuid.UUID]struct{})}
			byWeek[m.Gameweek] = w
		}
		w.goals += a.Goals
		w.assists += a.Assists
		w.matches[m.ID] = struct{}{}

		s, ok := seasons[key]
		if !ok {
			s = &playerSeason{matches: make(map[uuid.UUID]league.Match)}
			seasons[key] = s
		}
		s.goals += a.Goals
		s.assists += a.Assists
		s.matches[m.ID] = m
	}

	res.Players = playerRecords(weeks)
	res.Seasons = seasonRecords(seasons)
	res.Teams = teamRecords(matchByID)
	return res
}

func validateMatch(m league.Match) string {
	switch {
	case m.ID == uuid.Nil:
		return "missing match id"
	case m.TeamID == uuid.Nil:
		return "missing team id"
	case m.Season == "":
		return "missing season"
	case m.Gameweek < 1:
		return fmt.Sprintf("gameweek %d is not positive", m.Gameweek)
	case m.ScoreTeam < 0 || m.ScoreOpponent < 0:
		return fmt.Sprintf("negative score %d-%d", m.ScoreTeam, m.ScoreOpponent)
	}
	return ""
}

func validateAppearance(a league.Appearance) string {
	switch {
	case a.MatchID == uuid.Nil:
		return "missing match id"
	case a.PlayerID == uuid.Nil:
		return "missing player id"
	case a.Goals < 0:
		return fmt.Sprintf("negative goals %d", a.Goals)
	case a.Assists < 0 || a.YellowCards < 0 || a.RedCards < 0:
		return "negative counter"
	}
	return ""
}

func playerRecords(weeks map[league.PlayerKey]map[int]*playerWeek) []league.PlayerGameweekStat {
	keys := make([]league.PlayerKey, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sortPlayerKeys(keys)

	var out []league.PlayerGameweekStat
	for _, k := range keys {
		byWeek := weeks[k]
		var goals, assists, apps int
		for _, gw := range sortedWeeks(byWeek) {
			w := byWeek[gw]
			goals += w.goals
			assists += w.assists
			apps += len(w.matches)
			out = append(out, league.PlayerGameweekStat{
				PlayerID:              k.PlayerID,
				TeamID:                k.TeamID,
				Season:                k.Season,
				Gameweek:              gw,
				Goals:                 w.goals,
				CumulativeGoals:       goals,
				Assists:               w.assists,
				CumulativeAssists:     assists,
				Appearances:           len(w.matches),
				CumulativeAppearances: apps,
			})
		}
	}
	return out
}

func seasonRecords(seasons map[league.PlayerKey]*playerSeason) []league.PlayerSeasonStat {
	keys := make([]league.PlayerKey, 0, len(seasons))
	for k := range seasons {
		keys = append(keys, k)
	}
	sortPlayerKeys(keys)

	out := make([]league.PlayerSeasonStat, 0, len(keys))
	for _, k := range keys {
		s := seasons[k]
		rec := league.PlayerSeasonStat{
			PlayerID:    k.PlayerID,
			TeamID:      k.TeamID,
			Season:      k.Season,
			Appearances: len(s.matches),
			GoalsScored: s.goals,
			Assists:     s.assists,
		}
		for _, m := range s.matches {
			rec.TeamGoalsScored += m.ScoreTeam
			rec.TeamGoalsConceded += m.ScoreOpponent
			switch m.Outcome() {
			case league.Win:
				rec.Wins++
			case league.Draw:
				rec.Draws++
			default:
				rec.Losses++
			}
		}
		if rec.Appearances > 0 {
			rec.GoalsPerGame = float64(rec.GoalsScored) / float64(rec.Appearances)
			rec.WinRate = float64(rec.Wins) / float64(rec.Appearances)
		}
		out = append(out, rec)
	}
	return out
}

func teamRecords(matchByID map[uuid.UUID]league.Match) []league.TeamStat {
	weeks := make(map[league.TeamKey]map[int]*teamWeek)
	for _, m := range matchByID {
		key := league.TeamKey{TeamID: m.TeamID, Season: m.Season}
		byWeek, ok := weeks[key]
		if !ok {
			byWeek = make(map[int]*teamWeek)
			weeks[key] = byWeek
		}
		w, ok := byWeek[m.Gameweek]
		if !ok {
			w = &teamWeek{}
			byWeek[m.Gameweek] = w
		}
		w.games++
		w.goalsFor += m.ScoreTeam
		w.goalsAgainst += m.ScoreOpponent
		w.form.Add(m.Outcome())
	}

	keys := make([]league.TeamKey, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TeamID != keys[j].TeamID {
			return keys[i].TeamID.String() < keys[j].TeamID.String()
		}
		return keys[i].Season < keys[j].Season
	})

	var out []league.TeamStat
	for _, k := range keys {
		byWeek := weeks[k]
		cum := league.TeamStat{TeamID: k.TeamID, Season: k.Season}
		for _, gw := range sortedWeeks(byWeek) {
			w := byWeek[gw]
			cum.Gameweek = gw
			cum.GamesPlayed += w.games
			cum.GoalsScored += w.goalsFor
			cum.GoalsConceded += w.goalsAgainst
			cum.Wins += w.form.Wins
			cum.Draws += w.form.Draws
			cum.Losses += w.form.Losses
			cum.WinRate = WinRate(cum.Wins, cum.GamesPlayed)
			out = append(out, cum)
		}
	}
	return out
}

// WinRate is wins over games played, or 0 before any game.
func WinRate(wins, played int) float64 {
	if played <= 0 {
		return 0
	}
	return float64(wins) / float64(played)
}

func sortedWeeks[T any](byWeek map[int]T) []int {
	gws := make([]int, 0, len(byWeek))
	for gw := range byWeek {
		gws = append(gws, gw)
	}
	sort.Ints(gws)
	return gws
}

func sortPlayerKeys(keys []league.PlayerKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.TeamID != b.TeamID {
			return a.TeamID.String() < b.TeamID.String()
		}
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		return a.PlayerID.String() < b.PlayerID.String()
	})
}
