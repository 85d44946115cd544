package predict

import (
	"strings"

	"github.com/google/uuid"
)

// OpponentFormFeature carries the opponent-form scalar.
const OpponentFormFeature = "opponent_form"

const appearancePrefix = "appearance:"

// AppearanceFeature names the "teammate appeared" indicator for a player.
func AppearanceFeature(playerID uuid.UUID) string {
	return appearancePrefix + playerID.String()
}

// BuildFeatures lays out the vector model expects for subject playing in
// lineup. Declared features start at zero; teammate indicators for lineup
// members other than subject are set to one and the opponent-form feature
// takes opponentForm. Features the builder does not recognize stay zero and
// lineup members the model never saw are ignored, so models trained on an
// older roster keep working.
func BuildFeatures(model Predictor, subject uuid.UUID, lineup []uuid.UUID, opponentForm float64) []float64 {
	names := model.RequiredFeatures()
	x := make([]float64, len(names))
	if len(names) == 0 {
		return x
	}

	present := make(map[uuid.UUID]struct{}, len(lineup))
	for _, id := range lineup {
		if id == subject {
			continue
		}
		present[id] = struct{}{}
	}

	for i, name := range names {
		if name == OpponentFormFeature {
			x[i] = opponentForm
			continue
		}
		rest, ok := strings.CutPrefix(name, appearancePrefix)
		if !ok {
			continue
		}
		id, err := uuid.Parse(rest)
		if err != nil {
			continue
		}
		if _, in := present[id]; in {
			x[i] = 1
		}
	}
	return x
}
