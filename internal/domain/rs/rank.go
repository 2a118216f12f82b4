// Package rs ranks instruments by trailing return relative to a benchmark
// index and by percentile within a scanned cohort.
package rs

import (
	"github.com/basehunter/basehunter/internal/domain"
)

// DefaultLookback is the trailing window used for relative strength,
// roughly one trading year of daily bars.
const DefaultLookback = 252

// trailingReturn computes the percentage return over the trailing
// `lookback` bars. Returns ok=false when the series is too short.
func trailingReturn(series domain.PriceSeries, lookback int) (float64, bool) {
	if lookback <= 0 || len(series) < lookback {
		return 0, false
	}
	base := series[len(series)-lookback].Close
	if base == 0 {
		return 0, false
	}
	return (series.Last().Close/base - 1) * 100, true
}

// RelativeStrength computes the instrument's trailing return minus the
// benchmark's trailing return, both over `lookback` bars. Either series
// being shorter than `lookback` yields 0 (insufficient data, a normal
// neutral outcome rather than an error).
func RelativeStrength(series, benchmark domain.PriceSeries, lookback int) float64 {
	stockRet, ok := trailingReturn(series, lookback)
	if !ok {
		return 0
	}
	benchRet, ok := trailingReturn(benchmark, lookback)
	if !ok {
		return 0
	}
	return stockRet - benchRet
}

// PercentileRank ranks the instrument's relative strength within the
// cohort: the fraction of cohort members whose RS is strictly below the
// target's, times 100. An empty cohort returns the neutral default 50.
func PercentileRank(series domain.PriceSeries, cohort domain.Cohort, benchmark domain.PriceSeries, lookback int) float64 {
	if len(cohort) == 0 {
		return 50.0
	}

	target := RelativeStrength(series, benchmark, lookback)

	below := 0
	for _, member := range cohort {
		if RelativeStrength(member, benchmark, lookback) < target {
			below++
		}
	}

	return float64(below) / float64(len(cohort)) * 100
}
