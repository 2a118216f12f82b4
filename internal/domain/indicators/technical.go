package indicators

import (
	"math"

	"github.com/basehunter/basehunter/internal/domain"
)

// SMAResult represents the result of a simple moving average calculation
type SMAResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// SMA calculates the simple moving average over the trailing `period`
// values. IsValid is false when fewer than `period` values are available.
func SMA(values []float64, period int) SMAResult {
	if period <= 0 || len(values) < period {
		return SMAResult{Period: period, DataCount: len(values)}
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return SMAResult{
		Value:     sum / float64(period),
		Period:    period,
		IsValid:   true,
		DataCount: len(values),
	}
}

// SMAAt calculates the simple moving average of the `period` values ending
// at index `end` inclusive. IsValid is false when the window would start
// before the beginning of the slice.
func SMAAt(values []float64, period, end int) SMAResult {
	if period <= 0 || end >= len(values) || end-period+1 < 0 {
		return SMAResult{Period: period, DataCount: len(values)}
	}
	sum := 0.0
	for _, v := range values[end-period+1 : end+1] {
		sum += v
	}
	return SMAResult{
		Value:     sum / float64(period),
		Period:    period,
		IsValid:   true,
		DataCount: len(values),
	}
}

// WindowMax returns the maximum of values[start:end) or false when the
// window is empty or out of range.
func WindowMax(values []float64, start, end int) (float64, bool) {
	if start < 0 || end > len(values) || start >= end {
		return 0, false
	}
	max := values[start]
	for _, v := range values[start+1 : end] {
		if v > max {
			max = v
		}
	}
	return max, true
}

// WindowMin returns the minimum of values[start:end) or false when the
// window is empty or out of range.
func WindowMin(values []float64, start, end int) (float64, bool) {
	if start < 0 || end > len(values) || start >= end {
		return 0, false
	}
	min := values[start]
	for _, v := range values[start+1 : end] {
		if v < min {
			min = v
		}
	}
	return min, true
}

// ATRResult represents the result of an ATR calculation
type ATRResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// ATR calculates the Average True Range as the plain mean of the trailing
// `period` true ranges, where true range is
// max(high-low, |high-prevClose|, |low-prevClose|).
func ATR(series domain.PriceSeries, period int) ATRResult {
	if period <= 0 || len(series) < period+1 {
		return ATRResult{Period: period, DataCount: len(series)}
	}

	sum := 0.0
	for i := len(series) - period; i < len(series); i++ {
		cur := series[i]
		prevClose := series[i-1].Close
		hl := cur.High - cur.Low
		hc := math.Abs(cur.High - prevClose)
		lc := math.Abs(cur.Low - prevClose)
		sum += math.Max(hl, math.Max(hc, lc))
	}

	return ATRResult{
		Value:     sum / float64(period),
		Period:    period,
		IsValid:   true,
		DataCount: len(series),
	}
}
