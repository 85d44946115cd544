package predict

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/logger"
)

type fakeHistory struct {
	teams       map[uuid.UUID]league.Team
	opponents   map[uuid.UUID]league.Opponent
	players     map[uuid.UUID]league.Player
	matches     []league.Match
	appearances map[uuid.UUID][]league.Appearance
	failRecent  error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		teams:       map[uuid.UUID]league.Team{},
		opponents:   map[uuid.UUID]league.Opponent{},
		players:     map[uuid.UUID]league.Player{},
		appearances: map[uuid.UUID][]league.Appearance{},
	}
}

func (f *fakeHistory) GetTeam(_ context.Context, id uuid.UUID) (league.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return league.Team{}, league.ErrNotFound
	}
	return t, nil
}

func (f *fakeHistory) GetOpponent(_ context.Context, id uuid.UUID) (league.Opponent, error) {
	o, ok := f.opponents[id]
	if !ok {
		return league.Opponent{}, league.ErrNotFound
	}
	return o, nil
}

func (f *fakeHistory) GetPlayers(_ context.Context, ids []uuid.UUID) ([]league.Player, error) {
	var out []league.Player
	for _, id := range ids {
		if p, ok := f.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeHistory) RecentTeamMatches(_ context.Context, teamID uuid.UUID, n int) ([]league.Match, error) {
	if f.failRecent != nil {
		return nil, f.failRecent
	}
	var own []league.Match
	for _, m := range f.matches {
		if m.TeamID == teamID {
			own = append(own, m)
		}
	}
	return league.MostRecent(own, n), nil
}

func (f *fakeHistory) MatchesAgainst(_ context.Context, teamID, opponentID uuid.UUID) ([]league.Match, error) {
	var out []league.Match
	for _, m := range f.matches {
		if m.TeamID == teamID && m.OpponentID == opponentID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeHistory) RecentAppearances(_ context.Context, playerID, _ uuid.UUID, n int) ([]league.Appearance, error) {
	apps := f.appearances[playerID]
	if len(apps) > n {
		apps = apps[:n]
	}
	return apps, nil
}

type fixture struct {
	history  *fakeHistory
	team     uuid.UUID
	opponent uuid.UUID
	keeper   uuid.UUID
	striker  uuid.UUID
}

// newFixture builds a team with three wins, a draw and a loss in its last
// five, all against the same opponent.
func newFixture() fixture {
	h := newFakeHistory()
	team, opp := uuid.New(), uuid.New()
	keeper, striker := uuid.New(), uuid.New()
	h.teams[team] = league.Team{ID: team, Name: "Five Alive"}
	h.opponents[opp] = league.Opponent{ID: opp, TeamID: team, Name: "Net Results"}
	h.players[keeper] = league.Player{ID: keeper, TeamID: team, Name: "Keeper", Position: league.PositionGoalkeeper}
	h.players[striker] = league.Player{ID: striker, TeamID: team, Name: "Striker", Position: league.PositionOutfield}

	scores := [][2]int{{3, 1}, {2, 0}, {1, 1}, {0, 2}, {4, 3}}
	start := time.Date(2024, 9, 1, 19, 0, 0, 0, time.UTC)
	for i, s := range scores {
		h.matches = append(h.matches, league.Match{
			ID: uuid.New(), TeamID: team, OpponentID: opp, Season: "2024",
			Gameweek: i + 1, ScoreTeam: s[0], ScoreOpponent: s[1],
			PlayedAt: start.AddDate(0, 0, 7*i),
		})
	}
	h.appearances[striker] = []league.Appearance{
		{ID: uuid.New(), PlayerID: striker, Goals: 2},
		{ID: uuid.New(), PlayerID: striker, Goals: 1},
		{ID: uuid.New(), PlayerID: striker, Goals: 0},
		{ID: uuid.New(), PlayerID: striker, Goals: 1},
	}
	return fixture{history: h, team: team, opponent: opp, keeper: keeper, striker: striker}
}

func (f fixture) request() Request {
	return Request{TeamID: f.team, OpponentID: f.opponent, Lineup: []uuid.UUID{f.keeper, f.striker}}
}

func TestComposer_FallbackWithoutModels(t *testing.T) {
	f := newFixture()
	c := NewComposer(f.history, NewRegistry(), logger.NewNop())

	got, err := c.Predict(context.Background(), f.request())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.TeamForm != (league.Form{Wins: 3, Draws: 1, Losses: 1}) {
		t.Fatalf("form = %+v", got.TeamForm)
	}
	if math.Abs(got.ExpectedTeamGoals-3.5) > 1e-9 {
		t.Fatalf("expected team goals = %v, want 3.5", got.ExpectedTeamGoals)
	}
	if got.TeamScore != 4 {
		t.Fatalf("team score = %d, want 4", got.TeamScore)
	}
	wantOpp := 1.5 + 0.3 + got.Opponent.Strength
	if math.Abs(got.ExpectedOpponentGoals-wantOpp) > 1e-9 {
		t.Fatalf("expected opponent goals = %v, want %v", got.ExpectedOpponentGoals, wantOpp)
	}
	if got.Opponent.Strength >= 0.5 {
		t.Fatalf("opponent strength = %v, want < 0.5 after losing most meetings", got.Opponent.Strength)
	}

	if len(got.PlayerPredictions) != 2 {
		t.Fatalf("player predictions = %d, want 2", len(got.PlayerPredictions))
	}
	keeper, striker := got.PlayerPredictions[0], got.PlayerPredictions[1]
	if keeper.PlayerID != f.keeper || keeper.PlayerName != "Keeper" {
		t.Fatalf("lineup order not kept: %+v", keeper)
	}
	if math.Abs(keeper.PredictedGoals-0.3) > 1e-9 || keeper.Confidence != 0.7 {
		t.Fatalf("keeper = %+v, want 0.3 goals at 0.7", keeper)
	}
	if math.Abs(striker.PredictedGoals-(1.0+0.3)) > 1e-9 {
		t.Fatalf("striker goals = %v, want 1.3", striker.PredictedGoals)
	}
	if math.Abs(striker.Confidence-0.86) > 1e-9 {
		t.Fatalf("striker confidence = %v, want 0.86", striker.Confidence)
	}
	if striker.ModelUsed || len(got.Metadata.ModelsUsed) != 0 {
		t.Fatalf("no models registered but metadata says %v", got.Metadata.ModelsUsed)
	}
	if got.Metadata.TotalPlayersPredicted != 2 {
		t.Fatalf("total players = %d, want 2", got.Metadata.TotalPlayersPredicted)
	}
	if got.MatchConfidence < 0.4 || got.MatchConfidence > 0.9 {
		t.Fatalf("match confidence = %v out of bounds", got.MatchConfidence)
	}
	sum := got.Outcome.Win + got.Outcome.Draw + got.Outcome.Loss
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("outcome probabilities sum to %v", sum)
	}
}

func TestComposer_UsesRegisteredModels(t *testing.T) {
	f := newFixture()
	reg := NewRegistry()
	model := &fixedModel{features: []string{AppearanceFeature(f.keeper), OpponentFormFeature}, value: 0.9}
	reg.RegisterPlayer(f.striker, model)
	reg.RegisterGoalsConceded(&fixedModel{value: 1})
	benched := uuid.New()
	reg.RegisterPlayer(benched, &fixedModel{value: 5})

	c := NewComposer(f.history, reg, logger.NewNop())
	got, err := c.Predict(context.Background(), f.request())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	striker := got.PlayerPredictions[1]
	if !striker.ModelUsed || striker.PredictedGoals != 0.9 {
		t.Fatalf("striker = %+v, want model output 0.9", striker)
	}
	if len(model.seen) != 1 || model.seen[0][0] != 1 || model.seen[0][1] != got.Opponent.Form {
		t.Fatalf("model features = %v", model.seen)
	}

	formFactor := 3*0.3 + 1*0.1 - 1*0.2
	want := 2 + formFactor + (1 - got.Opponent.Strength)
	if math.Abs(got.ExpectedTeamGoals-want) > 1e-9 {
		t.Fatalf("expected team goals = %v, want %v", got.ExpectedTeamGoals, want)
	}
	used := got.Metadata.ModelsUsed
	if len(used) != 3 || used[2] != GoalsConcededRole {
		t.Fatalf("models used = %v, want both player models then %s", used, GoalsConcededRole)
	}
	listed := map[string]bool{used[0]: true, used[1]: true}
	if !listed[f.striker.String()] || !listed[benched.String()] {
		t.Fatalf("models used = %v, want every loaded player model", used)
	}
	if got.PlayerPredictions[0].ModelUsed {
		t.Fatalf("keeper has no model but is marked as model-predicted")
	}
}

func TestComposer_NegativeOrNonFiniteModelOutput(t *testing.T) {
	f := newFixture()
	reg := NewRegistry()
	reg.RegisterPlayer(f.keeper, &fixedModel{value: -3})
	reg.RegisterPlayer(f.striker, &fixedModel{value: math.NaN()})

	got, err := NewComposer(f.history, reg, logger.NewNop()).Predict(context.Background(), f.request())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.PlayerPredictions[0].PredictedGoals != 0 || !got.PlayerPredictions[0].ModelUsed {
		t.Fatalf("keeper = %+v, want clamped model output 0", got.PlayerPredictions[0])
	}
	if got.PlayerPredictions[1].ModelUsed {
		t.Fatalf("NaN output should fall back to the heuristic")
	}
}

func TestComposer_ReferenceErrors(t *testing.T) {
	f := newFixture()
	otherTeam := uuid.New()
	f.history.teams[otherTeam] = league.Team{ID: otherTeam}
	foreignOpp := uuid.New()
	f.history.opponents[foreignOpp] = league.Opponent{ID: foreignOpp, TeamID: otherTeam}
	foreignPlayer := uuid.New()
	f.history.players[foreignPlayer] = league.Player{ID: foreignPlayer, TeamID: otherTeam}

	cases := map[string]struct {
		req  Request
		kind string
	}{
		"unknown team":     {Request{TeamID: uuid.New(), OpponentID: f.opponent, Lineup: []uuid.UUID{f.keeper}}, "team"},
		"unknown opponent": {Request{TeamID: f.team, OpponentID: uuid.New(), Lineup: []uuid.UUID{f.keeper}}, "opponent"},
		"foreign opponent": {Request{TeamID: f.team, OpponentID: foreignOpp, Lineup: []uuid.UUID{f.keeper}}, "opponent"},
		"unknown player":   {Request{TeamID: f.team, OpponentID: f.opponent, Lineup: []uuid.UUID{f.keeper, uuid.New()}}, "player"},
		"foreign player":   {Request{TeamID: f.team, OpponentID: f.opponent, Lineup: []uuid.UUID{foreignPlayer}}, "player"},
	}
	c := NewComposer(f.history, nil, logger.NewNop())
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := c.Predict(context.Background(), tc.req)
			if got != nil {
				t.Fatalf("partial prediction returned")
			}
			var refErr *ReferenceError
			if !errors.As(err, &refErr) {
				t.Fatalf("err = %v, want *ReferenceError", err)
			}
			if refErr.Kind != tc.kind {
				t.Fatalf("kind = %q, want %q", refErr.Kind, tc.kind)
			}
			if !errors.Is(err, league.ErrNotFound) {
				t.Fatalf("reference error does not wrap ErrNotFound")
			}
		})
	}
}

func TestComposer_Validation(t *testing.T) {
	f := newFixture()
	c := NewComposer(f.history, nil, logger.NewNop(), WithOutfieldPlayers(4))

	cases := map[string]Request{
		"missing team":  {OpponentID: f.opponent, Lineup: []uuid.UUID{f.keeper}},
		"empty lineup":  {TeamID: f.team, OpponentID: f.opponent},
		"short lineup":  f.request(),
		"duplicate":     {TeamID: f.team, OpponentID: f.opponent, Lineup: []uuid.UUID{f.keeper, f.keeper, uuid.New(), uuid.New(), uuid.New()}},
		"nil player id": {TeamID: f.team, OpponentID: f.opponent, Lineup: []uuid.UUID{f.keeper, uuid.Nil, uuid.New(), uuid.New(), uuid.New()}},
		"missing oppo":  {TeamID: f.team, Lineup: []uuid.UUID{f.keeper}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Predict(context.Background(), req)
			if !errors.Is(err, league.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestComposer_LineupPositions(t *testing.T) {
	f := newFixture()
	outfield := func(n int) []uuid.UUID {
		ids := make([]uuid.UUID, n)
		for i := range ids {
			ids[i] = uuid.New()
			f.history.players[ids[i]] = league.Player{ID: ids[i], TeamID: f.team, Position: league.PositionOutfield}
		}
		return ids
	}
	secondKeeper := uuid.New()
	f.history.players[secondKeeper] = league.Player{ID: secondKeeper, TeamID: f.team, Position: "Goalkeeper"}
	unlisted := uuid.New()
	f.history.players[unlisted] = league.Player{ID: unlisted, TeamID: f.team}

	cases := map[string][]uuid.UUID{
		"no goalkeeper":     outfield(5),
		"goalkeeper last":   append(outfield(4), f.keeper),
		"two goalkeepers":   append([]uuid.UUID{f.keeper, secondKeeper}, outfield(3)...),
		"no position first": append([]uuid.UUID{unlisted}, outfield(4)...),
	}

	c := NewComposer(f.history, nil, logger.NewNop(), WithOutfieldPlayers(4))
	for name, lineup := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := c.Predict(context.Background(), Request{TeamID: f.team, OpponentID: f.opponent, Lineup: lineup})
			if got != nil || !errors.Is(err, league.ErrInvalidArgument) {
				t.Fatalf("Predict = (%v, %v), want ErrInvalidArgument", got, err)
			}
		})
	}

	ok := append([]uuid.UUID{f.keeper}, outfield(4)...)
	got, err := c.Predict(context.Background(), Request{TeamID: f.team, OpponentID: f.opponent, Lineup: ok})
	if err != nil {
		t.Fatalf("valid lineup: %v", err)
	}
	if len(got.PlayerPredictions) != 5 {
		t.Fatalf("predictions = %d, want 5", len(got.PlayerPredictions))
	}
}

func TestComposer_StorageErrorIsNotAReferenceError(t *testing.T) {
	f := newFixture()
	f.history.failRecent = errors.New("connection reset")
	_, err := NewComposer(f.history, nil, logger.NewNop()).Predict(context.Background(), f.request())
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, league.ErrNotFound) {
		t.Fatalf("storage error reported as not found: %v", err)
	}
}

func TestComposer_NoHistory(t *testing.T) {
	f := newFixture()
	f.history.matches = nil
	f.history.appearances = map[uuid.UUID][]league.Appearance{}

	got, err := NewComposer(f.history, nil, logger.NewNop()).Predict(context.Background(), f.request())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.ExpectedTeamGoals != 2 || got.ExpectedOpponentGoals != 2 {
		t.Fatalf("goals = %v-%v, want 2-2", got.ExpectedTeamGoals, got.ExpectedOpponentGoals)
	}
	if got.Opponent.Strength != 0.5 || got.Opponent.Form != 0.5 {
		t.Fatalf("opponent profile = %+v, want neutral", got.Opponent)
	}
	for _, p := range got.PlayerPredictions {
		if p.PredictedGoals != 0 || p.Confidence != 0.7 {
			t.Fatalf("player = %+v, want 0 goals at 0.7", p)
		}
	}
	if math.Abs(got.MatchConfidence-0.66) > 1e-9 {
		t.Fatalf("match confidence = %v", got.MatchConfidence)
	}
}
