package league

import (
	"strings"

	"github.com/google/uuid"
)

// PlayerKey identifies one (player, team, season) group of derived records.
type PlayerKey struct {
	PlayerID uuid.UUID
	TeamID   uuid.UUID
	Season   string
}

func (k PlayerKey) String() string {
	return k.PlayerID.String() + "/" + k.TeamID.String() + "/" + k.Season
}

// TeamKey identifies one (team, season) group of derived records.
type TeamKey struct {
	TeamID uuid.UUID
	Season string
}

func (k TeamKey) String() string {
	return k.TeamID.String() + "/" + k.Season
}

// Scope narrows a recalculation. A zero TeamID means every team; an empty
// Season means every season.
type Scope struct {
	TeamID uuid.UUID
	Season string
}

func (s Scope) IsAll() bool {
	return s.TeamID == uuid.Nil && strings.TrimSpace(s.Season) == ""
}

func (s Scope) String() string {
	if s.IsAll() {
		return "all"
	}
	team := "*"
	if s.TeamID != uuid.Nil {
		team = s.TeamID.String()
	}
	season := "*"
	if s.Season != "" {
		season = s.Season
	}
	return team + "|" + season
}

// Contains reports whether a team/season pair falls inside the scope.
func (s Scope) Contains(teamID uuid.UUID, season string) bool {
	if s.TeamID != uuid.Nil && s.TeamID != teamID {
		return false
	}
	if s.Season != "" && s.Season != season {
		return false
	}
	return true
}
