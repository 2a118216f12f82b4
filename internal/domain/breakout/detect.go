// Package breakout confirms closes above the trailing range high with
// supporting volume, and scores the confirmation quality.
package breakout

import (
	"fmt"
	"math"
	"time"

	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/indicators"
	"github.com/basehunter/basehunter/internal/domain/vcp"
)

// Candidate is a confirmed breakout. Created only when the breakout test
// passes; immutable. Setup links the originating VCP setup when one was
// detected for the same symbol.
type Candidate struct {
	Symbol            string     `json:"symbol"`
	Name              string     `json:"name,omitempty"`
	BreakoutDate      time.Time  `json:"breakout_date"`
	BreakoutPrice     float64    `json:"breakout_price"`
	PivotPrice        float64    `json:"pivot_price"`
	BreakoutVolume    float64    `json:"breakout_volume"`
	RelativeVolume    float64    `json:"relative_volume"`
	PriceChangePct    float64    `json:"price_change_pct"`
	GapUpPct          float64    `json:"gap_up_pct"`
	ConfirmationScore float64    `json:"confirmation_score"`
	Setup             *vcp.Setup `json:"vcp_setup,omitempty"`
}

// Config holds the breakout confirmation thresholds.
type Config struct {
	RelativeVolumeThreshold float64 `yaml:"relative_volume_threshold"`
}

// DefaultConfig returns the production breakout thresholds.
func DefaultConfig() Config {
	return Config{RelativeVolumeThreshold: 1.0}
}

// Detector evaluates single symbols for confirmed breakouts. State-free:
// calling Detect twice on the same series yields identical output.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

const (
	minDetectionBars = 101
	atrPeriod        = 14
	volumeSMAPeriod  = 20
)

// Detect tests whether the most recent bar closes above the trailing
// 100-bar range high (current bar excluded) on confirming volume. A nil
// candidate plus a reason string is the normal negative outcome.
func (d *Detector) Detect(symbol string, series domain.PriceSeries, info *domain.InstrumentInfo, linked *vcp.Setup) (*Candidate, string) {
	if len(series) < minDetectionBars {
		return nil, fmt.Sprintf("insufficient_data_%d_bars", len(series))
	}

	n := len(series)
	highs := series.Highs()
	pivot, _ := indicators.WindowMax(highs, n-101, n-1)

	current := series.Last()
	previous := series[n-2]

	if current.Close <= pivot {
		return nil, "close_below_pivot"
	}

	volSMA := indicators.SMAAt(series.Volumes(), volumeSMAPeriod, n-2)
	if !volSMA.IsValid || volSMA.Value <= 0 {
		return nil, "volume_sma_unavailable"
	}
	relativeVolume := current.Volume / volSMA.Value
	if relativeVolume < d.cfg.RelativeVolumeThreshold {
		return nil, fmt.Sprintf("relative_volume_%.2f_below_threshold", relativeVolume)
	}

	candidate := &Candidate{
		Symbol:            symbol,
		BreakoutDate:      current.Date,
		BreakoutPrice:     current.Close,
		PivotPrice:        pivot,
		BreakoutVolume:    current.Volume,
		RelativeVolume:    relativeVolume,
		PriceChangePct:    (current.Close - previous.Close) / previous.Close * 100,
		GapUpPct:          (current.Open - previous.Close) / previous.Close * 100,
		ConfirmationScore: confirmationScore(series, relativeVolume),
		Setup:             linked,
	}
	if info != nil {
		candidate.Name = info.Name
	}
	return candidate, ""
}

// Confirmation score term caps; each sub-term is capped before summation
// and the total is capped at 100.
const termCap = 25.0

// confirmationScore grades the breakout bar: wide range relative to ATR,
// close position within the range, gap up over the prior close, and
// relative volume.
func confirmationScore(series domain.PriceSeries, relativeVolume float64) float64 {
	n := len(series)
	current := series.Last()
	previous := series[n-2]

	score := 0.0

	if atr := indicators.ATR(series, atrPeriod); atr.IsValid && atr.Value > 0 {
		barRange := current.High - current.Low
		score += math.Min(barRange/atr.Value*10, termCap)
	}

	if barRange := current.High - current.Low; barRange > 0 {
		score += (current.Close - current.Low) / barRange * termCap
	}

	gapPct := (current.Open - previous.Close) / previous.Close * 100
	score += math.Min(math.Max(gapPct, 0)*5, termCap)

	score += math.Max(math.Min((relativeVolume-1)*12.5, termCap), 0)

	return math.Round(math.Min(score, 100)*10) / 10
}
