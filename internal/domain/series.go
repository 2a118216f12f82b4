package domain

import (
	"fmt"
	"time"
)

// PriceBar represents a single OHLCV bar. Bars are immutable once fetched.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a time-ascending sequence of bars with unique dates.
// The engine only reads slices of it; ownership stays with the provider.
type PriceSeries []PriceBar

// Len returns the number of bars in the series.
func (s PriceSeries) Len() int { return len(s) }

// Last returns the most recent bar. Callers must check Len() > 0 first.
func (s PriceSeries) Last() PriceBar { return s[len(s)-1] }

// Tail returns the most recent n bars, or the whole series if shorter.
func (s PriceSeries) Tail(n int) PriceSeries {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Closes extracts the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts the volume column.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Volume
	}
	return out
}

// Validate rejects malformed series at the collaborator boundary:
// non-ascending dates, non-positive prices, negative volume, or bars
// whose high/low straddle is inverted. Downstream engines assume a
// series that passed Validate.
func (s PriceSeries) Validate() error {
	for i, b := range s {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("bar %d (%s): non-positive price", i, b.Date.Format("2006-01-02"))
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d (%s): high %.4f below low %.4f", i, b.Date.Format("2006-01-02"), b.High, b.Low)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d (%s): negative volume", i, b.Date.Format("2006-01-02"))
		}
		if i > 0 && !s[i-1].Date.Before(b.Date) {
			return fmt.Errorf("bar %d (%s): date not strictly after previous bar", i, b.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Cohort maps symbol to that symbol's series for one universe scan.
// Built once per scan, shared read-only, discarded afterwards.
type Cohort map[string]PriceSeries

// InstrumentInfo carries the descriptive attributes the engine needs from
// the provider. Optional fields default to zero values; the engine only
// requires MarketCap and a display name.
type InstrumentInfo struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name,omitempty"`
	MarketCap float64 `json:"market_cap,omitempty"`
	Sector    string  `json:"sector,omitempty"`
	Industry  string  `json:"industry,omitempty"`
}
