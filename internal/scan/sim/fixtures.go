// Package sim provides deterministic in-memory providers for pipeline
// and handler tests.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
)

// FailureSimulator controls which provider calls return errors.
type FailureSimulator struct {
	SeriesError       bool
	InfoError         bool
	BenchmarkError    bool
	FundamentalsError bool
	SentimentError    bool
	ErrorMessage      string
}

func (fs *FailureSimulator) err() error {
	if fs.ErrorMessage != "" {
		return fmt.Errorf("%s", fs.ErrorMessage)
	}
	return fmt.Errorf("simulated failure")
}

// FixtureProvider serves canned series, metadata, fundamentals and
// headlines. It satisfies every provider interface the scanner takes.
type FixtureProvider struct {
	series       map[string]domain.PriceSeries
	info         map[string]*domain.InstrumentInfo
	benchmark    domain.PriceSeries
	fundamentals map[string]*fundamentals.Snapshot
	headlines    map[string][]sentiment.HeadlineScore
	failures     *FailureSimulator
}

// NewFixtureProvider creates an empty fixture provider.
func NewFixtureProvider() *FixtureProvider {
	return &FixtureProvider{
		series:       make(map[string]domain.PriceSeries),
		info:         make(map[string]*domain.InstrumentInfo),
		fundamentals: make(map[string]*fundamentals.Snapshot),
		headlines:    make(map[string][]sentiment.HeadlineScore),
		failures:     &FailureSimulator{},
	}
}

// SetSeries sets the daily bars served for a symbol.
func (fp *FixtureProvider) SetSeries(symbol string, series domain.PriceSeries) {
	fp.series[symbol] = series
}

// SetInfo sets the instrument metadata served for a symbol.
func (fp *FixtureProvider) SetInfo(symbol string, info *domain.InstrumentInfo) {
	fp.info[symbol] = info
}

// SetBenchmark sets the benchmark index series.
func (fp *FixtureProvider) SetBenchmark(series domain.PriceSeries) {
	fp.benchmark = series
}

// SetFundamentals sets the quality snapshot served for a symbol.
func (fp *FixtureProvider) SetFundamentals(symbol string, snap *fundamentals.Snapshot) {
	fp.fundamentals[symbol] = snap
}

// SetHeadlines sets the scored headlines served for a symbol.
func (fp *FixtureProvider) SetHeadlines(symbol string, headlines []sentiment.HeadlineScore) {
	fp.headlines[symbol] = headlines
}

// SetFailureSimulator configures error injection.
func (fp *FixtureProvider) SetFailureSimulator(failures *FailureSimulator) {
	fp.failures = failures
}

// DailySeries returns the canned series for a symbol.
func (fp *FixtureProvider) DailySeries(_ context.Context, symbol string) (domain.PriceSeries, error) {
	if fp.failures.SeriesError {
		return nil, fp.failures.err()
	}
	series, ok := fp.series[symbol]
	if !ok {
		return nil, fmt.Errorf("no series fixture for %s", symbol)
	}
	return series, nil
}

// InstrumentInfo returns the canned metadata for a symbol.
func (fp *FixtureProvider) InstrumentInfo(_ context.Context, symbol string) (*domain.InstrumentInfo, error) {
	if fp.failures.InfoError {
		return nil, fp.failures.err()
	}
	return fp.info[symbol], nil
}

// BenchmarkSeries returns the canned benchmark series.
func (fp *FixtureProvider) BenchmarkSeries(_ context.Context) (domain.PriceSeries, error) {
	if fp.failures.BenchmarkError {
		return nil, fp.failures.err()
	}
	return fp.benchmark, nil
}

// Fundamentals returns the canned snapshot for a symbol, nil when unset.
func (fp *FixtureProvider) Fundamentals(_ context.Context, symbol string) (*fundamentals.Snapshot, error) {
	if fp.failures.FundamentalsError {
		return nil, fp.failures.err()
	}
	return fp.fundamentals[symbol], nil
}

// Headlines returns the canned headlines for a symbol.
func (fp *FixtureProvider) Headlines(_ context.Context, symbol string) ([]sentiment.HeadlineScore, error) {
	if fp.failures.SentimentError {
		return nil, fp.failures.err()
	}
	return fp.headlines[symbol], nil
}

// FlatSeries builds n identical bars, useful as a neutral benchmark.
func FlatSeries(n int, price, volume float64) domain.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		bars[i] = domain.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: volume,
		}
	}
	return bars
}

// TrendSeries builds n bars rising linearly from start to end with the
// given constant volume.
func TrendSeries(n int, startPrice, endPrice, volume float64) domain.PriceSeries {
	startDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		p := startPrice + (endPrice-startPrice)*float64(i)/float64(n-1)
		bars[i] = domain.PriceBar{
			Date:   startDate.AddDate(0, 0, i),
			Open:   p,
			High:   p,
			Low:    p,
			Close:  p,
			Volume: volume,
		}
	}
	return bars
}
