package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBars(n int) PriceSeries {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	s := make(PriceSeries, n)
	for i := range s {
		s[i] = PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: 1000,
		}
	}
	return s
}

func TestPriceSeries_Validate_AcceptsWellFormed(t *testing.T) {
	s := makeBars(30)
	require.NoError(t, s.Validate())
}

func TestPriceSeries_Validate_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(PriceSeries)
	}{
		{"non-positive close", func(s PriceSeries) { s[5].Close = 0 }},
		{"inverted high/low", func(s PriceSeries) { s[5].High = 90 }},
		{"negative volume", func(s PriceSeries) { s[5].Volume = -1 }},
		{"duplicate date", func(s PriceSeries) { s[5].Date = s[4].Date }},
		{"out of order date", func(s PriceSeries) { s[5].Date = s[0].Date }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := makeBars(30)
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestPriceSeries_Tail(t *testing.T) {
	s := makeBars(10)
	assert.Len(t, s.Tail(4), 4)
	assert.Len(t, s.Tail(20), 10, "tail longer than series returns whole series")
	assert.Equal(t, s[9], s.Tail(4).Last())
}
