package league

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Team is a squad owned by a coach. Matches are always recorded from the
// team's side: ScoreTeam is the team's goals.
type Team struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Team) TableName() string { return "teams" }

// Opponent is a side a team has played or will play. Opponents belong to a
// single team.
type Opponent struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID uuid.UUID `gorm:"type:uuid;not null;index" json:"team_id"`
	Name   string    `gorm:"not null" json:"name"`
}

func (Opponent) TableName() string { return "opponents" }

type Player struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID   uuid.UUID `gorm:"type:uuid;not null;index" json:"team_id"`
	Name     string    `gorm:"not null" json:"name"`
	Position string    `json:"position,omitempty"`
}

func (Player) TableName() string { return "players" }

const (
	PositionGoalkeeper = "goalkeeper"
	PositionOutfield   = "outfield"
)

func (p Player) IsGoalkeeper() bool {
	return strings.EqualFold(strings.TrimSpace(p.Position), PositionGoalkeeper)
}

// Match represents a played fixture.
type Match struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID        uuid.UUID `gorm:"type:uuid;not null;index" json:"team_id"`
	OpponentID    uuid.UUID `gorm:"type:uuid;not null;index" json:"opponent_id"`
	Season        string    `gorm:"not null;index" json:"season"`
	Gameweek      int       `gorm:"not null" json:"gameweek"`
	ScoreTeam     int       `gorm:"not null" json:"score_team"`
	ScoreOpponent int       `gorm:"not null" json:"score_opponent"`
	PlayedAt      time.Time `gorm:"index" json:"played_at"`
}

func (Match) TableName() string { return "matches" }

// Appearance records one player taking part in one match. Assists and cards
// are carried through aggregation by summation only.
type Appearance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MatchID     uuid.UUID `gorm:"type:uuid;not null;index" json:"match_id"`
	PlayerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"player_id"`
	Goals       int       `gorm:"not null;default:0" json:"goals"`
	Assists     int       `gorm:"not null;default:0" json:"assists"`
	YellowCards int       `gorm:"not null;default:0" json:"yellow_cards"`
	RedCards    int       `gorm:"not null;default:0" json:"red_cards"`
}

func (Appearance) TableName() string { return "appearances" }

// PlayerGameweekStat holds a player's goals for one gameweek and the running
// totals for the (player, team, season) up to and including it.
type PlayerGameweekStat struct {
	PlayerID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"player_id"`
	TeamID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"team_id"`
	Season                string    `gorm:"primaryKey" json:"season"`
	Gameweek              int       `gorm:"primaryKey;autoIncrement:false" json:"gameweek"`
	Goals                 int       `json:"goals"`
	CumulativeGoals       int       `json:"cumulative_goals"`
	Assists               int       `json:"assists"`
	CumulativeAssists     int       `json:"cumulative_assists"`
	Appearances           int       `json:"appearances"`
	CumulativeAppearances int       `json:"cumulative_appearances"`
}

func (PlayerGameweekStat) TableName() string { return "player_gameweek_stats" }

func (s PlayerGameweekStat) Key() PlayerKey {
	return PlayerKey{PlayerID: s.PlayerID, TeamID: s.TeamID, Season: s.Season}
}

// TeamStat holds cumulative team counters as of a gameweek.
type TeamStat struct {
	TeamID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"team_id"`
	Season        string    `gorm:"primaryKey" json:"season"`
	Gameweek      int       `gorm:"primaryKey;autoIncrement:false" json:"gameweek"`
	GamesPlayed   int       `json:"games_played"`
	GoalsScored   int       `json:"goals_scored"`
	GoalsConceded int       `json:"goals_conceded"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Draws         int       `json:"draws"`
	WinRate       float64   `json:"win_rate"`
}

func (TeamStat) TableName() string { return "team_stats" }

func (s TeamStat) Key() TeamKey {
	return TeamKey{TeamID: s.TeamID, Season: s.Season}
}

// PlayerSeasonStat summarizes a player's season for one team, counting only
// the matches the player appeared in.
type PlayerSeasonStat struct {
	PlayerID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"player_id"`
	TeamID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"team_id"`
	Season            string    `gorm:"primaryKey" json:"season"`
	Appearances       int       `json:"appearances"`
	GoalsScored       int       `json:"goals_scored"`
	Assists           int       `json:"assists"`
	Wins              int       `json:"wins"`
	Draws             int       `json:"draws"`
	Losses            int       `json:"losses"`
	TeamGoalsScored   int       `json:"team_goals_scored"`
	TeamGoalsConceded int       `json:"team_goals_conceded"`
	GoalsPerGame      float64   `json:"goals_per_game"`
	WinRate           float64   `json:"win_rate"`
}

func (PlayerSeasonStat) TableName() string { return "player_stats" }

func (s PlayerSeasonStat) Key() PlayerKey {
	return PlayerKey{PlayerID: s.PlayerID, TeamID: s.TeamID, Season: s.Season}
}
