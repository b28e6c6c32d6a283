// Package completion derives completion percentages from the current state of
// the hierarchy. Nothing here is cached; every call recomputes from children.
package completion

import (
	"math"

	"goally/models"
)

// Source is the read side of the entity store needed by the calculator.
type Source interface {
	KrsOf(goalID string) []models.KeyResult
	InitiativesOf(krID string) []models.Initiative
}

type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// KrCompletion returns the share of initiative weight that is Done, as a
// percentage rounded to two decimals. A key result without initiatives, or
// whose weights sum to zero, is 0.
func KrCompletion(src Source, krID string) float64 {
	initiatives := src.InitiativesOf(krID)
	if len(initiatives) == 0 {
		return 0
	}
	var totalWeight, doneWeight int
	for _, in := range initiatives {
		totalWeight += in.WeightLevel
		if in.Status == models.StatusDone {
			doneWeight += in.WeightLevel
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return Round2(float64(doneWeight) / float64(totalWeight) * 100)
}

// GoalCompletion sums weight*krCompletion/100 over the goal's key results.
// The sum is not divided by the total key result weight, so goals whose
// weights do not add up to 100 can land outside 0..100.
func GoalCompletion(src Source, goalID string) float64 {
	krs := src.KrsOf(goalID)
	if len(krs) == 0 {
		return 0
	}
	var sum float64
	for _, kr := range krs {
		sum += kr.Weight * KrCompletion(src, kr.ID) / 100
	}
	return Round2(sum)
}

// TierOf buckets a percentage for progress bar colouring.
func TierOf(p float64) Tier {
	switch {
	case p < 34:
		return TierLow
	case p < 67:
		return TierMedium
	default:
		return TierHigh
	}
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
