package predict

import "math"

const (
	playerConfidenceBase  = 0.7
	consistencyPerApp     = 0.02
	consistencyCap        = 0.2
	performancePerGoal    = 0.02
	performanceCap        = 0.1
	playerConfidenceFloor = 0.5
	playerConfidenceCeil  = 0.95

	matchConfidenceBase  = 0.6
	matchBaseWeight      = 0.4
	matchPlayerWeight    = 0.6
	matchConfidenceFloor = 0.4
	matchConfidenceCeil  = 0.9
)

// PlayerConfidence grows with how often and how productively the player has
// featured recently. Always within [0.5, 0.95].
func PlayerConfidence(recentAppearances, recentGoals int) float64 {
	if recentAppearances <= 0 {
		return playerConfidenceBase
	}
	consistency := math.Min(consistencyCap, float64(recentAppearances)*consistencyPerApp)
	performance := math.Min(performanceCap, math.Max(0, float64(recentGoals))*performancePerGoal)
	return clamp(playerConfidenceBase+consistency+performance, playerConfidenceFloor, playerConfidenceCeil)
}

// MatchConfidence blends a base value with the mean player confidence.
// Always within [0.4, 0.9].
func MatchConfidence(players []float64) float64 {
	if len(players) == 0 {
		return matchConfidenceBase
	}
	var sum float64
	n := 0
	for _, c := range players {
		if math.IsNaN(c) {
			continue
		}
		sum += c
		n++
	}
	if n == 0 {
		return matchConfidenceBase
	}
	blended := matchConfidenceBase*matchBaseWeight + (sum/float64(n))*matchPlayerWeight
	return clamp(blended, matchConfidenceFloor, matchConfidenceCeil)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
