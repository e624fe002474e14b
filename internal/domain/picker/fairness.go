package picker

import "math"

// PerfectFairness is the score of an empty or perfectly even history.
const PerfectFairness = 100.0

// FairnessScore maps the spread of pick counts in history to [0, 100]:
//
//	score = 100 * (1 - min(variance / mean^2, 1))
//
// An empty history, or one where every count is zero, scores 100. The result
// keeps full precision; use RoundScore for display.
func FairnessScore(history PickHistory) float64 {
	mean, variance, ok := countMoments(history)
	if !ok || mean <= 0 {
		return PerfectFairness
	}
	score := PerfectFairness * (1 - math.Min(variance/(mean*mean), 1))
	return clampScore(score)
}

// LegacyFairnessScore reproduces the older constant-scaled conversions
// (100 - variance*factor, with factor 10 or 20). Comparison tooling only.
func LegacyFairnessScore(history PickHistory, factor float64) float64 {
	_, variance, ok := countMoments(history)
	if !ok {
		return PerfectFairness
	}
	return clampScore(PerfectFairness - variance*factor)
}

// RoundScore rounds a score to one decimal place.
func RoundScore(score float64) float64 {
	return math.Round(score*10) / 10
}

// countMoments returns mean and population variance of the counts in history.
// ok is false when there is nothing to measure (empty or all zero).
func countMoments(history PickHistory) (mean, variance float64, ok bool) {
	counts := history.Counts()
	if len(counts) == 0 {
		return 0, 0, false
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum == 0 {
		return 0, 0, false
	}
	n := float64(len(counts))
	mean = float64(sum) / n
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= n
	return mean, variance, true
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(PerfectFairness, score))
}
