package vcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basehunter/basehunter/internal/domain/legs"
)

func contractingLegs(depths ...float64) []legs.Leg {
	out := make([]legs.Leg, len(depths))
	for i, d := range depths {
		out[i] = legs.Leg{Index: i + 1, PullbackDepthPct: d, DurationBars: 10}
	}
	return out
}

func TestScore_Deterministic(t *testing.T) {
	sequence := contractingLegs(18, 12, 8)

	first := Score(sequence, 14, 30, 85, 3)
	second := Score(sequence, 14, 30, 85, 3)

	assert.Equal(t, first, second)
	assert.Greater(t, first, 0.0)
}

func TestScore_CapsAt100(t *testing.T) {
	// Every term pinned at its cap: 20+25+20+15+10+10 = 100.
	sequence := contractingLegs(30, 25, 20, 15, 10)

	score := Score(sequence, 12.5, 1e6, 1e6, 0)

	assert.Equal(t, 100.0, score)
}

func TestScore_BoundedForAnyInput(t *testing.T) {
	inputs := []struct {
		depth, dryUp, rs, dist float64
	}{
		{0, 0, 0, 0},
		{12.5, 500, 500, -10},
		{1e9, 1e9, 1e9, 1e9},
		{-5, -5, -5, 50},
	}

	for _, in := range inputs {
		score := Score(contractingLegs(10, 8, 6), in.depth, in.dryUp, in.rs, in.dist)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
}

func TestScore_DepthBellCurve(t *testing.T) {
	sequence := contractingLegs(18, 12, 8)

	ideal := Score(sequence, 12.5, 0, 0, 50)
	edge := Score(sequence, 20, 0, 0, 50)
	outside := Score(sequence, 9.9, 0, 0, 50)

	assert.Greater(t, ideal, edge, "12.5%% base outranks a 20%% base")
	assert.Equal(t, outside, Score(sequence, 25, 0, 0, 50), "outside the band the term is zero")
	assert.InDelta(t, 20.0, ideal-outside, 1e-9, "ideal depth earns the full 20-point term")
	assert.InDelta(t, 15.0, ideal-edge, 1e-9, "the band edge keeps only 5 of 20 points")
}

func TestScore_PivotProximityDecay(t *testing.T) {
	sequence := contractingLegs(18, 12, 8)

	near := Score(sequence, 0, 0, 0, 4)
	mid := Score(sequence, 0, 0, 0, 7.5)
	far := Score(sequence, 0, 0, 0, 20)

	assert.InDelta(t, 10.0, near-far, 1e-9)
	assert.InDelta(t, 7.5, mid-far, 1e-9)
}

func TestScore_ContractionQualityFraction(t *testing.T) {
	full := Score(contractingLegs(18, 12, 8), 0, 0, 0, 50)
	// Middle leg breaks the sequence: 1 of 2 pairs contract.
	broken := Score([]legs.Leg{
		{Index: 1, PullbackDepthPct: 18},
		{Index: 2, PullbackDepthPct: 19},
		{Index: 3, PullbackDepthPct: 8},
	}, 0, 0, 0, 50)

	assert.InDelta(t, 12.5, full-broken, 1e-9, "half the pairs, half the 25-point term")
}
