package predict

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/logger"
)

const (
	defaultRecentWindow = 5

	teamGoalsBase       = 2.0
	modelFormWinWeight  = 0.3
	modelFormDrawWeight = 0.1
	modelFormLossWeight = 0.2
	fallbackWinBonus    = 0.5

	opponentGoalsBase = 1.5
	lossPenalty       = 0.3

	playerWinBonus = 0.1
)

// HistorySource is the read side of the match history store.
// Lookups for missing entities must return an error wrapping league.ErrNotFound.
type HistorySource interface {
	GetTeam(ctx context.Context, id uuid.UUID) (league.Team, error)
	GetOpponent(ctx context.Context, id uuid.UUID) (league.Opponent, error)
	GetPlayers(ctx context.Context, ids []uuid.UUID) ([]league.Player, error)
	RecentTeamMatches(ctx context.Context, teamID uuid.UUID, n int) ([]league.Match, error)
	MatchesAgainst(ctx context.Context, teamID, opponentID uuid.UUID) ([]league.Match, error)
	RecentAppearances(ctx context.Context, playerID, teamID uuid.UUID, n int) ([]league.Appearance, error)
}

// ReferenceError reports a request id that does not resolve.
type ReferenceError struct {
	Kind   string
	ID     uuid.UUID
	Reason string
}

func (e *ReferenceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %s", e.Kind, e.ID, e.Reason)
	}
	return fmt.Sprintf("unknown %s %s", e.Kind, e.ID)
}

func (e *ReferenceError) Unwrap() error { return league.ErrNotFound }

type Request struct {
	TeamID     uuid.UUID   `json:"team_id"`
	OpponentID uuid.UUID   `json:"opponent_id"`
	Lineup     []uuid.UUID `json:"lineup"`
}

type PlayerPrediction struct {
	PlayerID       uuid.UUID `json:"player_id"`
	PlayerName     string    `json:"player_name"`
	PredictedGoals float64   `json:"predicted_goals"`
	Confidence     float64   `json:"confidence"`
	ModelUsed      bool      `json:"model_used"`
}

// Metadata.ModelsUsed names every loaded model; PlayerPrediction.ModelUsed
// marks the ones this lineup actually ran.
type Metadata struct {
	ModelsUsed            []string `json:"models_used"`
	TotalPlayersPredicted int      `json:"total_players_predicted"`
}

type Prediction struct {
	TeamScore             int                    `json:"team_score"`
	OpponentScore         int                    `json:"opponent_score"`
	ExpectedTeamGoals     float64                `json:"expected_team_goals"`
	ExpectedOpponentGoals float64                `json:"expected_opponent_goals"`
	Outcome               OutcomeProbabilities   `json:"outcome_probabilities"`
	PlayerPredictions     []PlayerPrediction     `json:"player_predictions"`
	MatchConfidence       float64                `json:"match_confidence"`
	TeamForm              league.Form            `json:"team_form"`
	Opponent              league.OpponentProfile `json:"opponent"`
	Metadata              Metadata               `json:"prediction_metadata"`
}

type Composer struct {
	history         HistorySource
	models          *Registry
	log             *logger.Logger
	recentWindow    int
	outfieldPlayers int
}

type ComposerOption func(*Composer)

// WithRecentWindow sets how many recent matches/appearances feed the form heuristics.
func WithRecentWindow(n int) ComposerOption {
	return func(c *Composer) {
		if n > 0 {
			c.recentWindow = n
		}
	}
}

// WithOutfieldPlayers requires lineups of exactly one goalkeeper plus n
// outfield players. Zero accepts any non-empty lineup.
func WithOutfieldPlayers(n int) ComposerOption {
	return func(c *Composer) {
		if n >= 0 {
			c.outfieldPlayers = n
		}
	}
}

func NewComposer(history HistorySource, models *Registry, baseLog *logger.Logger, opts ...ComposerOption) *Composer {
	if models == nil {
		models = NewRegistry()
	}
	c := &Composer{
		history:      history,
		models:       models,
		log:          baseLog.With("component", "predict.Composer"),
		recentWindow: defaultRecentWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type playerForm struct {
	appearances int
	goals       int
}

// Predict forecasts the scoreline and per-player goals for a lineup. It
// returns either a complete prediction or an error; unknown references are
// reported as *ReferenceError.
func (c *Composer) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	if _, err := c.history.GetTeam(ctx, req.TeamID); err != nil {
		return nil, resolveErr("team", req.TeamID, err)
	}
	opp, err := c.history.GetOpponent(ctx, req.OpponentID)
	if err != nil {
		return nil, resolveErr("opponent", req.OpponentID, err)
	}
	if opp.TeamID != req.TeamID {
		return nil, &ReferenceError{Kind: "opponent", ID: req.OpponentID, Reason: "does not belong to team " + req.TeamID.String()}
	}

	players, err := c.lineupPlayers(ctx, req)
	if err != nil {
		return nil, err
	}

	recent, err := c.history.RecentTeamMatches(ctx, req.TeamID, c.recentWindow)
	if err != nil {
		return nil, fmt.Errorf("loading recent matches: %w", err)
	}
	form := league.RecentForm(recent, c.recentWindow)

	meetings, err := c.history.MatchesAgainst(ctx, req.TeamID, req.OpponentID)
	if err != nil {
		return nil, fmt.Errorf("loading head to head: %w", err)
	}
	profile := league.ProfileOpponent(req.OpponentID, meetings)

	forms, err := c.playerForms(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Prediction{
		TeamForm: form,
		Opponent: profile,
		Metadata: Metadata{ModelsUsed: c.models.Names()},
	}
	confidences := make([]float64, 0, len(req.Lineup))
	for i, id := range req.Lineup {
		p := players[id]
		pf := forms[i]
		goals, used := c.playerGoals(id, req.Lineup, pf, form, profile)
		conf := PlayerConfidence(pf.appearances, pf.goals)
		confidences = append(confidences, conf)
		out.PlayerPredictions = append(out.PlayerPredictions, PlayerPrediction{
			PlayerID:       id,
			PlayerName:     p.Name,
			PredictedGoals: goals,
			Confidence:     conf,
			ModelUsed:      used,
		})
	}

	_, hasConceded := c.models.GoalsConcededModel()
	out.ExpectedTeamGoals = expectedTeamGoals(form, profile, hasConceded)
	out.ExpectedOpponentGoals = expectedOpponentGoals(form, profile)
	out.TeamScore = int(math.Round(out.ExpectedTeamGoals))
	out.OpponentScore = int(math.Round(out.ExpectedOpponentGoals))
	out.Outcome = outcomeProbabilities(out.ExpectedTeamGoals, out.ExpectedOpponentGoals)
	out.MatchConfidence = MatchConfidence(confidences)
	out.Metadata.TotalPlayersPredicted = len(out.PlayerPredictions)

	c.log.Debug("prediction composed",
		"team_id", req.TeamID,
		"opponent_id", req.OpponentID,
		"team_score", out.TeamScore,
		"opponent_score", out.OpponentScore,
		"match_confidence", out.MatchConfidence,
		"models_used", len(out.Metadata.ModelsUsed),
	)
	return out, nil
}

func (c *Composer) validate(req Request) error {
	if req.TeamID == uuid.Nil {
		return fmt.Errorf("%w: team_id is required", league.ErrInvalidArgument)
	}
	if req.OpponentID == uuid.Nil {
		return fmt.Errorf("%w: opponent_id is required", league.ErrInvalidArgument)
	}
	if len(req.Lineup) == 0 {
		return fmt.Errorf("%w: lineup is empty", league.ErrInvalidArgument)
	}
	if c.outfieldPlayers > 0 && len(req.Lineup) != c.outfieldPlayers+1 {
		return fmt.Errorf("%w: lineup needs a goalkeeper and %d outfield players, got %d players",
			league.ErrInvalidArgument, c.outfieldPlayers, len(req.Lineup))
	}
	seen := make(map[uuid.UUID]struct{}, len(req.Lineup))
	for _, id := range req.Lineup {
		if id == uuid.Nil {
			return fmt.Errorf("%w: lineup contains an empty player id", league.ErrInvalidArgument)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: player %s listed twice", league.ErrInvalidArgument, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (c *Composer) lineupPlayers(ctx context.Context, req Request) (map[uuid.UUID]league.Player, error) {
	found, err := c.history.GetPlayers(ctx, req.Lineup)
	if err != nil {
		return nil, fmt.Errorf("loading lineup players: %w", err)
	}
	byID := make(map[uuid.UUID]league.Player, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, id := range req.Lineup {
		p, ok := byID[id]
		if !ok {
			return nil, &ReferenceError{Kind: "player", ID: id}
		}
		if p.TeamID != req.TeamID {
			return nil, &ReferenceError{Kind: "player", ID: id, Reason: "does not belong to team " + req.TeamID.String()}
		}
	}
	if c.outfieldPlayers > 0 {
		if err := checkPositions(req.Lineup, byID); err != nil {
			return nil, err
		}
	}
	return byID, nil
}

// checkPositions requires the goalkeeper first and nowhere else.
func checkPositions(lineup []uuid.UUID, byID map[uuid.UUID]league.Player) error {
	for i, id := range lineup {
		keeper := byID[id].IsGoalkeeper()
		switch {
		case i == 0 && !keeper:
			return fmt.Errorf("%w: lineup must start with a goalkeeper, %s is not one", league.ErrInvalidArgument, id)
		case i > 0 && keeper:
			return fmt.Errorf("%w: only one goalkeeper allowed, %s is a second", league.ErrInvalidArgument, id)
		}
	}
	return nil
}

// playerForms loads each lineup player's recent appearances concurrently;
// the result is indexed like req.Lineup.
func (c *Composer) playerForms(ctx context.Context, req Request) ([]playerForm, error) {
	forms := make([]playerForm, len(req.Lineup))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range req.Lineup {
		g.Go(func() error {
			apps, err := c.history.RecentAppearances(gctx, id, req.TeamID, c.recentWindow)
			if err != nil {
				return fmt.Errorf("loading recent appearances for %s: %w", id, err)
			}
			pf := playerForm{appearances: len(apps)}
			for _, a := range apps {
				pf.goals += a.Goals
			}
			forms[i] = pf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forms, nil
}

// playerGoals uses the player's model when one is registered and falls back
// to recent goals per appearance plus a team-form bonus otherwise.
func (c *Composer) playerGoals(id uuid.UUID, lineup []uuid.UUID, pf playerForm, form league.Form, opp league.OpponentProfile) (float64, bool) {
	if model, ok := c.models.PlayerModel(id); ok {
		v := model.Predict(BuildFeatures(model, id, lineup, opp.Form))
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return nonNegative(v), true
		}
		c.log.Warn("player model returned a non-finite value, using fallback", "player_id", id)
	}
	var perGame float64
	if pf.appearances > 0 {
		perGame = float64(pf.goals) / float64(pf.appearances)
	}
	return nonNegative(perGame + float64(form.Wins)*playerWinBonus), false
}

func expectedTeamGoals(form league.Form, opp league.OpponentProfile, hasConcededModel bool) float64 {
	if hasConcededModel {
		formFactor := float64(form.Wins)*modelFormWinWeight +
			float64(form.Draws)*modelFormDrawWeight -
			float64(form.Losses)*modelFormLossWeight
		return nonNegative(teamGoalsBase + formFactor + (1 - opp.Strength))
	}
	return nonNegative(teamGoalsBase + float64(form.Wins)*fallbackWinBonus)
}

func expectedOpponentGoals(form league.Form, opp league.OpponentProfile) float64 {
	return nonNegative(opponentGoalsBase + float64(form.Losses)*lossPenalty + opp.Strength)
}

func resolveErr(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, league.ErrNotFound) {
		return &ReferenceError{Kind: kind, ID: id}
	}
	return fmt.Errorf("loading %s %s: %w", kind, id, err)
}
