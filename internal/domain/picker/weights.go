package picker

import (
	"math"
	"time"
)

// Weighting constants.
const (
	// MaxTimeWeight caps the recency weight; never-picked students get it.
	MaxTimeWeight = 24.0
	// MinWeight keeps every student selectable regardless of history skew.
	MinWeight = 0.1
)

// ComputeWeights converts history into a sampling weight per roster member.
//
//	time_weight      = min(hours since last pick, 24), or 24 if never picked
//	frequency_weight = maxCount - count + 1 (maxCount is at least 1)
//	weight           = max(time_weight * frequency_weight, 0.1)
//
// Students absent from history count as zero picks, never picked.
func ComputeWeights(roster []string, history PickHistory, now time.Time) map[string]float64 {
	maxCount := 1
	for _, rec := range history {
		if rec.Count > maxCount {
			maxCount = rec.Count
		}
	}

	weights := make(map[string]float64, len(roster))
	for _, student := range roster {
		rec := history[student]
		count := max(rec.Count, 0)

		timeWeight := MaxTimeWeight
		if rec.LastPicked != nil && !rec.LastPicked.IsZero() {
			timeWeight = math.Min(now.Sub(*rec.LastPicked).Hours(), MaxTimeWeight)
		}
		frequencyWeight := float64(maxCount - count + 1)

		weights[student] = math.Max(timeWeight*frequencyWeight, MinWeight)
	}
	return weights
}

// RoundWeights rounds every weight to two decimals for display.
func RoundWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for k, w := range weights {
		out[k] = math.Round(w*100) / 100
	}
	return out
}
