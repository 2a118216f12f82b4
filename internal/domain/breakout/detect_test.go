package breakout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basehunter/basehunter/internal/domain"
)

// flatBase builds n bars oscillating in a tight 99-101 range on steady
// 1000-share volume. The trailing 100-bar high is 101.
func flatBase(n int) domain.PriceSeries {
	first := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := make(domain.PriceSeries, n)
	for i := range s {
		s[i] = domain.PriceBar{
			Date:   first.AddDate(0, 0, i),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: 1000,
		}
	}
	return s
}

// withBreakoutBar replaces the final bar with a wide-range gap-up close
// above the 101 pivot on elevated volume.
func withBreakoutBar(s domain.PriceSeries, volume float64) domain.PriceSeries {
	out := make(domain.PriceSeries, len(s))
	copy(out, s)
	last := &out[len(out)-1]
	last.Open = 104
	last.High = 106.5
	last.Low = 103.5
	last.Close = 106
	last.Volume = volume
	return out
}

func TestDetect_ConfirmedBreakout(t *testing.T) {
	series := withBreakoutBar(flatBase(120), 1500)
	info := &domain.InstrumentInfo{Symbol: "ACME", Name: "Acme Corp"}

	detector := NewDetector(DefaultConfig())
	candidate, reason := detector.Detect("ACME", series, info, nil)

	require.NotNil(t, candidate, "rejected: %s", reason)
	assert.Equal(t, 101.0, candidate.PivotPrice)
	assert.Equal(t, 106.0, candidate.BreakoutPrice)
	assert.InDelta(t, 1.5, candidate.RelativeVolume, 1e-9)
	assert.InDelta(t, 6.0, candidate.PriceChangePct, 1e-9)
	assert.InDelta(t, 4.0, candidate.GapUpPct, 1e-9)
	assert.Equal(t, "Acme Corp", candidate.Name)
	assert.Equal(t, series.Last().Date, candidate.BreakoutDate)

	// Relative volume term alone: (1.5-1) x 12.5 = 6.25 points.
	assert.Greater(t, candidate.ConfirmationScore, 6.25)
	assert.LessOrEqual(t, candidate.ConfirmationScore, 100.0)
}

func TestDetect_Idempotent(t *testing.T) {
	series := withBreakoutBar(flatBase(120), 1500)
	detector := NewDetector(DefaultConfig())

	first, _ := detector.Detect("ACME", series, nil, nil)
	second, _ := detector.Detect("ACME", series, nil, nil)

	require.NotNil(t, first)
	assert.Equal(t, first, second, "pure function over an immutable series")
}

func TestDetect_NeverFiresBelowPivot(t *testing.T) {
	series := flatBase(120) // close 100 under the 101 pivot

	detector := NewDetector(DefaultConfig())
	candidate, reason := detector.Detect("ACME", series, nil, nil)

	assert.Nil(t, candidate)
	assert.Equal(t, "close_below_pivot", reason)
}

func TestDetect_InsufficientData(t *testing.T) {
	series := withBreakoutBar(flatBase(100), 1500)

	detector := NewDetector(DefaultConfig())
	candidate, reason := detector.Detect("ACME", series, nil, nil)

	assert.Nil(t, candidate)
	assert.Contains(t, reason, "insufficient_data")
}

func TestDetect_WeakVolumeRejected(t *testing.T) {
	series := withBreakoutBar(flatBase(120), 800) // 0.8x relative volume

	detector := NewDetector(DefaultConfig())
	candidate, reason := detector.Detect("ACME", series, nil, nil)

	assert.Nil(t, candidate)
	assert.Contains(t, reason, "relative_volume")
}

func TestDetect_ZeroVolumeSMARejected(t *testing.T) {
	series := withBreakoutBar(flatBase(120), 1500)
	for i := range series[:len(series)-1] {
		series[i].Volume = 0
	}

	detector := NewDetector(DefaultConfig())
	candidate, reason := detector.Detect("ACME", series, nil, nil)

	assert.Nil(t, candidate)
	assert.Equal(t, "volume_sma_unavailable", reason)
}

func TestConfirmationScore_ZeroRangeBar(t *testing.T) {
	series := withBreakoutBar(flatBase(120), 1500)
	last := &series[len(series)-1]
	last.High = 106
	last.Low = 106
	last.Open = 106

	detector := NewDetector(DefaultConfig())
	candidate, _ := detector.Detect("ACME", series, nil, nil)

	require.NotNil(t, candidate)
	// Range and close-position terms are zero; gap and volume terms remain.
	assert.Greater(t, candidate.ConfirmationScore, 0.0)
	assert.LessOrEqual(t, candidate.ConfirmationScore, 100.0)
}
