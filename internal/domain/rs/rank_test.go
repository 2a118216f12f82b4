package rs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/basehunter/basehunter/internal/domain"
)

// flatThenTrend builds a series of n bars that starts at `start` and ends
// at `end`, moving linearly. Dates are consecutive weekdays-agnostic days.
func flatThenTrend(n int, start, end float64) domain.PriceSeries {
	first := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := make(domain.PriceSeries, n)
	for i := range s {
		c := start
		if n > 1 {
			c = start + (end-start)*float64(i)/float64(n-1)
		}
		s[i] = domain.PriceBar{
			Date: first.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000,
		}
	}
	return s
}

func TestRelativeStrength(t *testing.T) {
	benchmark := flatThenTrend(300, 100, 110) // +10%
	strong := flatThenTrend(300, 100, 150)    // +50%
	weak := flatThenTrend(300, 100, 95)       // -5%

	// Lookback 300 spans the whole series: returns computed from bar 0.
	assert.InDelta(t, 40.0, RelativeStrength(strong, benchmark, 300), 1e-9)
	assert.InDelta(t, -15.0, RelativeStrength(weak, benchmark, 300), 1e-9)
}

func TestRelativeStrength_InsufficientData(t *testing.T) {
	benchmark := flatThenTrend(300, 100, 110)
	short := flatThenTrend(100, 100, 200)

	assert.Equal(t, 0.0, RelativeStrength(short, benchmark, DefaultLookback))
	assert.Equal(t, 0.0, RelativeStrength(benchmark, short, DefaultLookback))
}

func TestPercentileRank_EmptyCohort(t *testing.T) {
	series := flatThenTrend(300, 100, 120)
	benchmark := flatThenTrend(300, 100, 110)

	assert.Equal(t, 50.0, PercentileRank(series, domain.Cohort{}, benchmark, DefaultLookback))
}

func TestPercentileRank_Monotonic(t *testing.T) {
	benchmark := flatThenTrend(300, 100, 110)
	cohort := domain.Cohort{
		"A": flatThenTrend(300, 100, 105),
		"B": flatThenTrend(300, 100, 120),
		"C": flatThenTrend(300, 100, 140),
		"D": flatThenTrend(300, 100, 160),
	}

	strong := flatThenTrend(300, 100, 150)
	weak := flatThenTrend(300, 100, 108)

	strongRank := PercentileRank(strong, cohort, benchmark, 300)
	weakRank := PercentileRank(weak, cohort, benchmark, 300)

	assert.GreaterOrEqual(t, strongRank, weakRank, "higher RS must never rank below lower RS")
	assert.InDelta(t, 75.0, strongRank, 1e-9, "3 of 4 members strictly below")
	assert.InDelta(t, 25.0, weakRank, 1e-9, "1 of 4 members strictly below")
}
