package picker

import (
	"fmt"
	"math"
	"math/rand"
)

// Select performs one weighted-random draw over roster. Weights need not sum
// to one; a roster member without a usable weight is drawn with MinWeight.
func Select(roster []string, weights map[string]float64, rng *rand.Rand) (string, error) {
	if len(roster) == 0 {
		return "", fmt.Errorf("select: empty roster: %w", ErrInvalidInput)
	}
	if rng == nil {
		return "", fmt.Errorf("select: nil random source: %w", ErrInvalidInput)
	}

	effective := make([]float64, len(roster))
	total := 0.0
	for i, student := range roster {
		w, ok := weights[student]
		if !ok || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			w = MinWeight
		}
		effective[i] = w
		total += w
	}

	target := rng.Float64() * total
	cumulative := 0.0
	for i, w := range effective {
		cumulative += w
		if target < cumulative {
			return roster[i], nil
		}
	}
	// Float rounding can leave target == total.
	return roster[len(roster)-1], nil
}
