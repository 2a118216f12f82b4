// Package vcp detects and scores multi-leg volatility contraction
// setups: a passing gate pipeline, a progressively contracting leg
// sequence, and a 0-100 quality score.
package vcp

import (
	"fmt"
	"time"

	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/gates"
	"github.com/basehunter/basehunter/internal/domain/indicators"
	"github.com/basehunter/basehunter/internal/domain/legs"
	"github.com/basehunter/basehunter/internal/domain/rs"
)

// Setup is a detected volatility contraction setup. Immutable once built;
// Legs is ordered by occurrence and satisfies the contraction invariant.
type Setup struct {
	Symbol               string     `json:"symbol"`
	Name                 string     `json:"name,omitempty"`
	CurrentPrice         float64    `json:"current_price"`
	Legs                 []legs.Leg `json:"legs"`
	TotalBaseDepthPct    float64    `json:"total_base_depth_pct"`
	BaseDurationBars     int        `json:"base_duration_bars"`
	PivotPrice           float64    `json:"pivot_price"`
	DistanceFromPivotPct float64    `json:"distance_from_pivot_pct"`
	RelativeStrength     float64    `json:"relative_strength"`
	RSPercentile         float64    `json:"rs_percentile"`
	VolumeDryUpPct       float64    `json:"volume_dry_up_pct"`
	TrendAligned         bool       `json:"trend_aligned"`
	Score                float64    `json:"score"`
	DetectedAt           time.Time  `json:"detected_at"`
	SMA20                float64    `json:"sma_20"`
	SMA50                float64    `json:"sma_50"`
	SMA200               *float64   `json:"sma_200,omitempty"`

	// Gate evidence retained for explainability.
	GateReasons []gates.GateReason `json:"gate_reasons,omitempty"`
}

// Config holds the detection thresholds.
type Config struct {
	MinLegs              int     `yaml:"min_legs"`
	MaxLegs              int     `yaml:"max_legs"`
	FinalBaseDepthMaxPct float64 `yaml:"final_base_depth_max_pct"`
	RSLookback           int     `yaml:"rs_lookback"`

	Gates gates.Config `yaml:"gates"`
	Legs  legs.Config  `yaml:"legs"`
}

// DefaultConfig returns the production detection thresholds.
func DefaultConfig() Config {
	return Config{
		MinLegs:              3,
		MaxLegs:              5,
		FinalBaseDepthMaxPct: 15,
		RSLookback:           rs.DefaultLookback,
		Gates:                gates.DefaultConfig(),
		Legs:                 legs.DefaultConfig(),
	}
}

// Detector evaluates single symbols for VCP setups. It holds no mutable
// state; all collaborators arrive as call arguments.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// minDetectionBars is the minimum series length for detection; the
// near-breakout pivot needs 100 bars preceding the current one.
const minDetectionBars = 101

// Detect runs the full evaluation for one symbol: relative strength,
// gate pipeline, leg extraction, acceptance bounds, and scoring. A nil
// setup plus a reason string is the normal negative outcome; it is never
// an error.
func (d *Detector) Detect(symbol string, series domain.PriceSeries, info *domain.InstrumentInfo, benchmark domain.PriceSeries, cohort domain.Cohort) (*Setup, string) {
	if len(series) < minDetectionBars {
		return nil, fmt.Sprintf("insufficient_data_%d_bars", len(series))
	}

	relStrength := rs.RelativeStrength(series, benchmark, d.cfg.RSLookback)
	rsPercentile := rs.PercentileRank(series, cohort, benchmark, d.cfg.RSLookback)

	gateResult := gates.Evaluate(series, info, rsPercentile, d.cfg.Gates)
	if !gateResult.Passed {
		return nil, gateResult.OverallReason
	}

	sequence, baseDepth := legs.Extract(series, d.cfg.Legs)
	if len(sequence) < d.cfg.MinLegs {
		return nil, fmt.Sprintf("too_few_legs_%d", len(sequence))
	}
	if len(sequence) > d.cfg.MaxLegs {
		return nil, fmt.Sprintf("too_many_legs_%d", len(sequence))
	}
	if baseDepth > d.cfg.FinalBaseDepthMaxPct {
		return nil, fmt.Sprintf("base_too_deep_%.1f%%", baseDepth)
	}

	closes := series.Closes()
	sma20 := indicators.SMA(closes, 20)
	sma50 := indicators.SMA(closes, 50)
	current := series.Last().Close

	setup := &Setup{
		Symbol:               symbol,
		CurrentPrice:         current,
		Legs:                 sequence,
		TotalBaseDepthPct:    baseDepth,
		BaseDurationBars:     totalDuration(sequence),
		PivotPrice:           gateResult.PivotPrice,
		DistanceFromPivotPct: gateResult.DistanceFromPivotPct,
		RelativeStrength:     relStrength,
		RSPercentile:         rsPercentile,
		VolumeDryUpPct:       gateResult.VolumeDryUpPct,
		TrendAligned:         sma20.IsValid && sma50.IsValid && current > sma20.Value && sma20.Value > sma50.Value,
		Score:                Score(sequence, baseDepth, gateResult.VolumeDryUpPct, rsPercentile, gateResult.DistanceFromPivotPct),
		DetectedAt:           time.Now().UTC(),
		SMA20:                sma20.Value,
		SMA50:                sma50.Value,
		GateReasons:          gateResult.Reasons,
	}

	if info != nil {
		setup.Name = info.Name
	}
	if sma200 := indicators.SMA(closes, 200); sma200.IsValid {
		v := sma200.Value
		setup.SMA200 = &v
	}

	return setup, ""
}

func totalDuration(sequence []legs.Leg) int {
	total := 0
	for _, leg := range sequence {
		total += leg.DurationBars
	}
	return total
}
