// Package gates implements the pre-breakout filter pipeline: four
// quantitative gates applied in fixed order with short-circuit
// evaluation. A symbol must clear every gate before leg extraction
// and scoring are attempted.
package gates

import (
	"fmt"

	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/indicators"
)

// GateReason records the outcome and reasoning for a single gate.
type GateReason struct {
	Name    string             `json:"name"`
	Passed  bool               `json:"passed"`
	Message string             `json:"message"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Config holds the tunable gate thresholds.
type Config struct {
	MinMarketCap               float64 `yaml:"min_market_cap"`
	RSPercentileMin            float64 `yaml:"rs_percentile_min"`
	NearBreakoutMaxDistancePct float64 `yaml:"near_breakout_max_distance_pct"`
}

// DefaultConfig returns the production gate thresholds.
func DefaultConfig() Config {
	return Config{
		MinMarketCap:               2_000_000_000,
		RSPercentileMin:            70,
		NearBreakoutMaxDistancePct: 7,
	}
}

// PipelineResult aggregates the outcome of the whole gate pipeline plus
// the measurements later stages reuse (pivot, distance, volume dry-up).
type PipelineResult struct {
	Passed               bool         `json:"passed"`
	OverallReason        string       `json:"overall_reason"`
	Reasons              []GateReason `json:"reasons"`
	PivotPrice           float64      `json:"pivot_price"`
	DistanceFromPivotPct float64      `json:"distance_from_pivot_pct"`
	VolumeDryUpPct       float64      `json:"volume_dry_up_pct"`
}

// Evaluate runs the gates in order: liquidity, near-breakout, higher-lows,
// volume-contraction. The pipeline stops at the first failure; the failing
// gate's reason is the last entry in Reasons.
func Evaluate(series domain.PriceSeries, info *domain.InstrumentInfo, rsPercentile float64, cfg Config) *PipelineResult {
	result := &PipelineResult{Reasons: make([]GateReason, 0, 4)}

	liquidity := EvaluateLiquidity(series, info, rsPercentile, cfg)
	result.Reasons = append(result.Reasons, liquidity)
	if !liquidity.Passed {
		result.OverallReason = fmt.Sprintf("blocked_by_liquidity: %s", liquidity.Message)
		return result
	}

	nearBreakout, pivot, distance := EvaluateNearBreakout(series, cfg)
	result.Reasons = append(result.Reasons, nearBreakout)
	result.PivotPrice = pivot
	result.DistanceFromPivotPct = distance
	if !nearBreakout.Passed {
		result.OverallReason = fmt.Sprintf("blocked_by_near_breakout: %s", nearBreakout.Message)
		return result
	}

	higherLows := EvaluateHigherLows(series)
	result.Reasons = append(result.Reasons, higherLows)
	if !higherLows.Passed {
		result.OverallReason = fmt.Sprintf("blocked_by_higher_lows: %s", higherLows.Message)
		return result
	}

	volContraction, dryUp := EvaluateVolumeContraction(series)
	result.Reasons = append(result.Reasons, volContraction)
	result.VolumeDryUpPct = dryUp
	if !volContraction.Passed {
		result.OverallReason = fmt.Sprintf("blocked_by_volume_contraction: %s", volContraction.Message)
		return result
	}

	result.Passed = true
	result.OverallReason = "all_gates_passed"
	return result
}

// EvaluateLiquidity checks market cap floor, close above the 20-bar SMA,
// and the minimum relative-strength percentile. A nil info record skips
// the market cap check (cap unknown at the provider).
func EvaluateLiquidity(series domain.PriceSeries, info *domain.InstrumentInfo, rsPercentile float64, cfg Config) GateReason {
	reason := GateReason{Name: "liquidity", Metrics: map[string]float64{"rs_percentile": rsPercentile}}

	if info != nil {
		reason.Metrics["market_cap"] = info.MarketCap
		if info.MarketCap < cfg.MinMarketCap {
			reason.Message = fmt.Sprintf("market_cap_below_floor_%.0f", cfg.MinMarketCap)
			return reason
		}
	}

	sma20 := indicators.SMA(series.Closes(), 20)
	if !sma20.IsValid {
		reason.Message = fmt.Sprintf("insufficient_data_%d_bars", len(series))
		return reason
	}
	reason.Metrics["sma_20"] = sma20.Value
	if series.Last().Close <= sma20.Value {
		reason.Message = "close_below_sma20"
		return reason
	}

	if rsPercentile < cfg.RSPercentileMin {
		reason.Message = fmt.Sprintf("rs_percentile_%.1f_below_%.0f", rsPercentile, cfg.RSPercentileMin)
		return reason
	}

	reason.Passed = true
	reason.Message = "liquid_and_leading"
	return reason
}

// EvaluateNearBreakout requires the close to sit below but within the
// configured distance of the trailing 100-bar range high (current bar
// excluded). Returns the pivot price and the distance percentage for
// reuse by the scorer.
func EvaluateNearBreakout(series domain.PriceSeries, cfg Config) (GateReason, float64, float64) {
	reason := GateReason{Name: "near_breakout", Metrics: map[string]float64{}}

	if len(series) < 101 {
		reason.Message = fmt.Sprintf("insufficient_data_%d_bars", len(series))
		return reason, 0, 0
	}

	highs := series.Highs()
	pivot, _ := indicators.WindowMax(highs, len(highs)-101, len(highs)-1)
	close := series.Last().Close
	reason.Metrics["pivot_price"] = pivot
	reason.Metrics["close"] = close

	if close > pivot {
		reason.Message = "already_broken_out"
		return reason, pivot, 0
	}

	distance := (pivot - close) / pivot * 100
	reason.Metrics["distance_from_pivot_pct"] = distance
	if distance > cfg.NearBreakoutMaxDistancePct {
		reason.Message = fmt.Sprintf("too_far_from_pivot_%.1f%%", distance)
		return reason, pivot, distance
	}

	reason.Passed = true
	reason.Message = fmt.Sprintf("within_%.1f%%_of_pivot", distance)
	return reason, pivot, distance
}

// EvaluateHigherLows compares the minimum low of three recent windows
// (10, 20, 30 bars) against the minimum low of the window of equal
// length immediately preceding each. All three must be strictly higher.
func EvaluateHigherLows(series domain.PriceSeries) GateReason {
	reason := GateReason{Name: "higher_lows", Metrics: map[string]float64{}}

	if len(series) < 60 {
		reason.Message = fmt.Sprintf("insufficient_data_%d_bars", len(series))
		return reason
	}

	lows := series.Lows()
	n := len(lows)
	for _, window := range []int{10, 20, 30} {
		recent, _ := indicators.WindowMin(lows, n-window, n)
		prior, _ := indicators.WindowMin(lows, n-2*window, n-window)
		reason.Metrics[fmt.Sprintf("low_%d_recent", window)] = recent
		reason.Metrics[fmt.Sprintf("low_%d_prior", window)] = prior
		if recent <= prior {
			reason.Message = fmt.Sprintf("%d_bar_low_not_higher", window)
			return reason
		}
	}

	reason.Passed = true
	reason.Message = "higher_lows_confirmed"
	return reason
}

// volumeComparisonOffsets are the fixed look-back points for the
// volume-contraction test, in bars.
var volumeComparisonOffsets = []int{5, 10, 15, 20, 25, 30}

// EvaluateVolumeContraction checks that the 20-bar volume SMA one bar
// back is strictly below the same average at one or more of the fixed
// comparison offsets, and measures the dry-up percentage: the decline
// from the maximum SMA value over the preceding 30 bars to the current
// value (0 when that window is unavailable).
func EvaluateVolumeContraction(series domain.PriceSeries) (GateReason, float64) {
	reason := GateReason{Name: "volume_contraction", Metrics: map[string]float64{}}

	if len(series) < 50 {
		reason.Message = fmt.Sprintf("insufficient_data_%d_bars", len(series))
		return reason, 0
	}

	volumes := series.Volumes()
	n := len(volumes)
	current := indicators.SMAAt(volumes, 20, n-2)
	if !current.IsValid {
		reason.Message = "volume_sma_unavailable"
		return reason, 0
	}
	reason.Metrics["vol_sma_20"] = current.Value

	contractions := 0
	for _, offset := range volumeComparisonOffsets {
		past := indicators.SMAAt(volumes, 20, n-1-offset)
		if past.IsValid && current.Value < past.Value {
			contractions++
		}
	}
	reason.Metrics["contractions"] = float64(contractions)

	if contractions == 0 {
		reason.Message = "volume_not_contracting"
		return reason, 0
	}

	dryUp := 0.0
	maxPast := current.Value
	for end := n - 31; end <= n-2; end++ {
		if sma := indicators.SMAAt(volumes, 20, end); sma.IsValid && sma.Value > maxPast {
			maxPast = sma.Value
		}
	}
	if maxPast > 0 && maxPast > current.Value {
		dryUp = (maxPast - current.Value) / maxPast * 100
	}
	reason.Metrics["dry_up_pct"] = dryUp

	reason.Passed = true
	reason.Message = fmt.Sprintf("contracting_at_%d_of_%d_offsets", contractions, len(volumeComparisonOffsets))
	return reason, dryUp
}
