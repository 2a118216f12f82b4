package vcp

import (
	"math"

	"github.com/basehunter/basehunter/internal/domain/legs"
)

// Score term caps. Every term is capped independently before summation
// and the total is capped at 100.
const (
	legCountCap    = 20.0
	contractionCap = 25.0
	baseDepthCap   = 20.0
	dryUpCap       = 15.0
	rsCap          = 10.0
	proximityCap   = 10.0

	idealBaseDepthPct = 12.5
)

// Score computes the 0-100 setup quality score as a weighted sum of leg
// count, contraction quality, base depth, volume dry-up, relative
// strength and pivot proximity. It is a pure function: identical inputs
// always yield the identical score.
func Score(sequence []legs.Leg, baseDepthPct, volumeDryUpPct, rsPercentile, distanceFromPivotPct float64) float64 {
	score := math.Min(float64(len(sequence))*5, legCountCap)

	if len(sequence) >= 2 {
		contractions := 0
		for i := 1; i < len(sequence); i++ {
			if sequence[i].PullbackDepthPct < sequence[i-1].PullbackDepthPct {
				contractions++
			}
		}
		score += float64(contractions) / float64(len(sequence)-1) * contractionCap
	}

	// Depth term peaks at the ideal 12.5% base and fades to zero at the
	// edges of the 10-20% band.
	if baseDepthPct >= 10 && baseDepthPct <= 20 {
		score += math.Max(baseDepthCap-math.Abs(baseDepthPct-idealBaseDepthPct)*2, 0)
	}

	score += math.Min(volumeDryUpPct/2, dryUpCap)
	score += math.Min(rsPercentile/10, rsCap)
	score += proximityTerm(distanceFromPivotPct)

	return math.Round(math.Min(score, 100)*10) / 10
}

// proximityTerm awards the full 10 points within 5% of the pivot,
// decaying linearly to zero between 5% and 10%.
func proximityTerm(distancePct float64) float64 {
	switch {
	case distancePct <= 5:
		return proximityCap
	case distancePct <= 10:
		return proximityCap - (distancePct - 5)
	default:
		return 0
	}
}
