// Package legs extracts progressively contracting swing legs from the
// recent price window. A leg is one local high followed by the next local
// low; a qualifying sequence of legs with strictly shrinking pullback
// depth is the structural signature the scanner looks for.
package legs

import (
	"math"
	"time"

	"github.com/basehunter/basehunter/internal/domain"
)

// maxLegs caps the accepted sequence; the pattern is defined over at most
// five contractions.
const maxLegs = 5

// minWindowBars is the minimum number of bars the extractor needs.
const minWindowBars = 60

// Leg represents one contraction swing: a local high to the subsequent
// local low. Legs are immutable once created.
type Leg struct {
	Index            int       `json:"index"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	HighPrice        float64   `json:"high_price"`
	LowPrice         float64   `json:"low_price"`
	PullbackDepthPct float64   `json:"pullback_depth_pct"`
	VolumeRatio      float64   `json:"volume_ratio"`
	DurationBars     int       `json:"duration_bars"`
}

// Config holds the tunable extraction parameters. The thresholds are
// noise-filtering heuristics, not derived constants.
type Config struct {
	WindowBars     int     `yaml:"leg_window_bars"`      // pattern-detection window
	ExtremeWindow  int     `yaml:"local_extreme_window"` // centered local-extreme window
	MinPullbackPct float64 `yaml:"min_pullback_pct"`     // floor below which a swing is noise
}

// DefaultConfig returns the production extraction parameters: a six-month
// window, a 5-bar centered extreme window, and a 2% pullback floor.
func DefaultConfig() Config {
	return Config{
		WindowBars:     126,
		ExtremeWindow:  5,
		MinPullbackPct: 2,
	}
}

// Extract walks the local highs of the recent window in chronological
// order, pairs each with the next local low, and accepts a candidate leg
// only when its pullback depth clears the noise floor and is strictly
// smaller than the previously accepted depth. It returns the accepted
// legs and the total base depth: the percentage drop from the highest leg
// high to the lowest leg low. Fewer than 60 bars yields no legs.
func Extract(series domain.PriceSeries, cfg Config) ([]Leg, float64) {
	window := series.Tail(cfg.WindowBars)
	if len(window) < minWindowBars {
		return nil, 0
	}

	highIdx := localExtremes(window, cfg.ExtremeWindow, func(b domain.PriceBar) float64 { return b.High }, true)
	lowIdx := localExtremes(window, cfg.ExtremeWindow, func(b domain.PriceBar) float64 { return b.Low }, false)
	if len(highIdx) < 2 || len(lowIdx) < 2 {
		return nil, 0
	}

	legs := make([]Leg, 0, maxLegs)
	prevDepth := math.Inf(1)

	for _, hi := range highIdx {
		if len(legs) == maxLegs {
			break
		}
		lo, ok := firstAfter(lowIdx, hi)
		if !ok {
			break
		}

		high := window[hi].High
		low := window[lo].Low
		depth := (high - low) / high * 100
		if depth <= cfg.MinPullbackPct || depth >= prevDepth {
			continue
		}

		legs = append(legs, Leg{
			Index:            len(legs) + 1,
			StartDate:        window[hi].Date,
			EndDate:          window[lo].Date,
			HighPrice:        high,
			LowPrice:         low,
			PullbackDepthPct: depth,
			VolumeRatio:      volumeRatio(window, hi, lo),
			DurationBars:     lo - hi,
		})
		prevDepth = depth
	}

	if len(legs) == 0 {
		return nil, 0
	}

	maxHigh := legs[0].HighPrice
	minLow := legs[0].LowPrice
	for _, leg := range legs[1:] {
		if leg.HighPrice > maxHigh {
			maxHigh = leg.HighPrice
		}
		if leg.LowPrice < minLow {
			minLow = leg.LowPrice
		}
	}

	return legs, (maxHigh - minLow) / maxHigh * 100
}

// localExtremes returns the indices of bars that equal the max (or min)
// of the centered window of `window` bars around them. Edge bars without
// a full window never qualify.
func localExtremes(series domain.PriceSeries, window int, value func(domain.PriceBar) float64, wantMax bool) []int {
	half := window / 2
	var out []int
	for i := half; i < len(series)-half; i++ {
		v := value(series[i])
		extreme := true
		for j := i - half; j <= i+half; j++ {
			other := value(series[j])
			if wantMax && other > v || !wantMax && other < v {
				extreme = false
				break
			}
		}
		if extreme {
			out = append(out, i)
		}
	}
	return out
}

// firstAfter returns the first index in sorted `indices` strictly greater
// than `after`.
func firstAfter(indices []int, after int) (int, bool) {
	for _, idx := range indices {
		if idx > after {
			return idx, true
		}
	}
	return 0, false
}

// volumeRatio compares the mean volume inside the leg against the mean
// volume of the 20 bars preceding the leg high. When fewer than 20 bars
// precede the high the leg's own mean is used, yielding a neutral 1.0.
func volumeRatio(series domain.PriceSeries, hi, lo int) float64 {
	legVol := meanVolume(series[hi : lo+1])

	prevVol := legVol
	if hi > 20 {
		prevVol = meanVolume(series[hi-20 : hi])
	}
	if prevVol <= 0 {
		return 1.0
	}
	return legVol / prevVol
}

func meanVolume(bars domain.PriceSeries) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}
