package predict

import "math"

const maxGoalsModelled = 10

// OutcomeProbabilities treats both sides' goals as independent Poisson
// variables with the expected goals as means.
type OutcomeProbabilities struct {
	Win  float64 `json:"win"`
	Draw float64 `json:"draw"`
	Loss float64 `json:"loss"`
}

func outcomeProbabilities(teamXG, oppXG float64) OutcomeProbabilities {
	team := poissonPMF(teamXG, maxGoalsModelled)
	opp := poissonPMF(oppXG, maxGoalsModelled)

	var out OutcomeProbabilities
	var total float64
	for i, pt := range team {
		for j, po := range opp {
			p := pt * po
			total += p
			switch {
			case i > j:
				out.Win += p
			case i == j:
				out.Draw += p
			default:
				out.Loss += p
			}
		}
	}
	if total > 0 {
		out.Win /= total
		out.Draw /= total
		out.Loss /= total
	}
	return out
}

// poissonPMF returns P(k) for k in [0, maxK].
func poissonPMF(lambda float64, maxK int) []float64 {
	lambda = nonNegative(lambda)
	pmf := make([]float64, maxK+1)
	p := math.Exp(-lambda)
	for k := 0; k <= maxK; k++ {
		if k > 0 {
			p *= lambda / float64(k)
		}
		pmf[k] = p
	}
	return pmf
}
