// Package pipeline orchestrates full-universe scans: fetch daily bars for
// every symbol, run the pattern and breakout detectors per symbol on a
// bounded worker pool, enrich survivors with fundamentals and sentiment,
// and rank the results.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/breakout"
	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
	"github.com/basehunter/basehunter/internal/domain/vcp"
	"github.com/basehunter/basehunter/internal/score/composite"
)

// SeriesProvider supplies daily OHLCV history and instrument metadata.
type SeriesProvider interface {
	DailySeries(ctx context.Context, symbol string) (domain.PriceSeries, error)
	InstrumentInfo(ctx context.Context, symbol string) (*domain.InstrumentInfo, error)
}

// BenchmarkProvider supplies the index series used for relative strength.
type BenchmarkProvider interface {
	BenchmarkSeries(ctx context.Context) (domain.PriceSeries, error)
}

// FundamentalsProvider supplies quality metrics for a symbol. Optional;
// a nil provider skips the fundamentals component of the combined score.
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, symbol string) (*fundamentals.Snapshot, error)
}

// SentimentProvider supplies scored headlines for a symbol. Optional.
type SentimentProvider interface {
	Headlines(ctx context.Context, symbol string) ([]sentiment.HeadlineScore, error)
}

// Config defines scan-wide settings on top of the detector configs.
type Config struct {
	VCP        vcp.Config      `yaml:"vcp"`
	Breakout   breakout.Config `yaml:"breakout"`
	Workers    int             `yaml:"workers"`
	MaxSymbols int             `yaml:"max_symbols"`
}

// DefaultConfig returns scan settings suitable for a few hundred symbols.
func DefaultConfig() Config {
	return Config{
		VCP:      vcp.DefaultConfig(),
		Breakout: breakout.DefaultConfig(),
		Workers:  8,
	}
}

// Result is the per-symbol outcome of a full scan.
type Result struct {
	Symbol         string              `json:"symbol"`
	Setup          *vcp.Setup          `json:"setup,omitempty"`
	Breakout       *breakout.Candidate `json:"breakout,omitempty"`
	CombinedScore  float64             `json:"combined_score"`
	Recommendation string              `json:"recommendation"`
	Reason         string              `json:"reason,omitempty"`
}

// Summary aggregates counters for one scan run.
type Summary struct {
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	SymbolsRequested int           `json:"symbols_requested"`
	SymbolsEvaluated int           `json:"symbols_evaluated"`
	SetupsFound      int           `json:"setups_found"`
	BreakoutsFound   int           `json:"breakouts_found"`
	FetchErrors      int           `json:"fetch_errors"`
}

// Scanner runs pattern scans across a symbol universe.
type Scanner struct {
	config       Config
	series       SeriesProvider
	benchmark    BenchmarkProvider
	fundamentals FundamentalsProvider
	sentiment    SentimentProvider
	vcpDetector  *vcp.Detector
	brkDetector  *breakout.Detector
}

// NewScanner creates a scanner. Fundamentals and sentiment providers may
// be nil; the combined score then reweights over the remaining components.
func NewScanner(config Config, series SeriesProvider, benchmark BenchmarkProvider, fnd FundamentalsProvider, snt SentimentProvider) *Scanner {
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	return &Scanner{
		config:       config,
		series:       series,
		benchmark:    benchmark,
		fundamentals: fnd,
		sentiment:    snt,
		vcpDetector:  vcp.NewDetector(config.VCP),
		brkDetector:  breakout.NewDetector(config.Breakout),
	}
}

type fetched struct {
	index  int
	symbol string
	series domain.PriceSeries
	info   *domain.InstrumentInfo
	err    error
}

// Scan evaluates every symbol and returns results with setups first,
// ordered by combined score descending. Ties keep universe order.
func (s *Scanner) Scan(ctx context.Context, symbols []string) ([]Result, Summary, error) {
	start := time.Now()
	summary := Summary{StartedAt: start, SymbolsRequested: len(symbols)}

	if s.config.MaxSymbols > 0 && len(symbols) > s.config.MaxSymbols {
		symbols = symbols[:s.config.MaxSymbols]
	}

	bench, err := s.benchmark.BenchmarkSeries(ctx)
	if err != nil {
		return nil, summary, fmt.Errorf("fetch benchmark series: %w", err)
	}

	log.Info().Int("symbols", len(symbols)).Int("workers", s.config.Workers).Msg("scan started")

	rows := s.fetchUniverse(ctx, symbols)
	if err := ctx.Err(); err != nil {
		return nil, summary, err
	}

	// The relative strength cohort needs every series before any symbol
	// can be evaluated, so the scan is two phases: fetch, then detect.
	cohort := make(domain.Cohort, len(rows))
	for _, row := range rows {
		if row.err != nil {
			summary.FetchErrors++
			log.Warn().Str("symbol", row.symbol).Err(row.err).Msg("series fetch failed")
			continue
		}
		cohort[row.symbol] = row.series
	}

	indexed := make([]struct {
		order  int
		result Result
	}, 0, len(rows))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.config.Workers)

	for _, row := range rows {
		if row.err != nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(row fetched) {
			defer wg.Done()
			defer func() { <-sem }()

			result := s.evaluateSymbol(ctx, row, bench, cohort)

			mu.Lock()
			indexed = append(indexed, struct {
				order  int
				result Result
			}{row.index, result})
			mu.Unlock()
		}(row)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, summary, err
	}

	// Restore universe order before the score sort so equal scores keep
	// a deterministic ordering.
	sort.Slice(indexed, func(i, j int) bool { return indexed[i].order < indexed[j].order })
	results := make([]Result, len(indexed))
	for i, row := range indexed {
		results[i] = row.result
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})

	for _, r := range results {
		summary.SymbolsEvaluated++
		if r.Setup != nil {
			summary.SetupsFound++
		}
		if r.Breakout != nil {
			summary.BreakoutsFound++
		}
	}
	summary.Duration = time.Since(start)

	log.Info().
		Int("evaluated", summary.SymbolsEvaluated).
		Int("setups", summary.SetupsFound).
		Int("breakouts", summary.BreakoutsFound).
		Int("fetch_errors", summary.FetchErrors).
		Dur("duration", summary.Duration).
		Msg("scan complete")

	return results, summary, nil
}

// ScanSymbol evaluates a single symbol against a ready-made cohort. The
// cohort may be nil, in which case relative strength percentile defaults
// to the neutral midpoint.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string, cohort domain.Cohort) (Result, error) {
	bench, err := s.benchmark.BenchmarkSeries(ctx)
	if err != nil {
		return Result{Symbol: symbol}, fmt.Errorf("fetch benchmark series: %w", err)
	}

	series, err := s.series.DailySeries(ctx, symbol)
	if err != nil {
		return Result{Symbol: symbol}, fmt.Errorf("fetch series for %s: %w", symbol, err)
	}
	info, err := s.series.InstrumentInfo(ctx, symbol)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("instrument info unavailable")
		info = nil
	}

	row := fetched{symbol: symbol, series: series, info: info}
	return s.evaluateSymbol(ctx, row, bench, cohort), nil
}

// fetchUniverse pulls every symbol's series concurrently, bounded by the
// worker count, preserving the submission index for ordering.
func (s *Scanner) fetchUniverse(ctx context.Context, symbols []string) []fetched {
	rows := make([]fetched, len(symbols))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.config.Workers)
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			rows[i] = fetched{index: i, symbol: symbol, err: ctx.Err()}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			series, err := s.series.DailySeries(ctx, symbol)
			if err != nil {
				rows[i] = fetched{index: i, symbol: symbol, err: err}
				return
			}
			info, err := s.series.InstrumentInfo(ctx, symbol)
			if err != nil {
				// Metadata failures degrade to a nil info rather than
				// dropping the symbol; the liquidity gate tolerates it.
				log.Debug().Str("symbol", symbol).Err(err).Msg("instrument info unavailable")
				info = nil
			}
			rows[i] = fetched{index: i, symbol: symbol, series: series, info: info}
		}(i, symbol)
	}
	wg.Wait()

	return rows
}

func (s *Scanner) evaluateSymbol(ctx context.Context, row fetched, bench domain.PriceSeries, cohort domain.Cohort) Result {
	result := Result{Symbol: row.symbol}

	setup, reason := s.vcpDetector.Detect(row.symbol, row.series, row.info, bench, cohort)
	result.Setup = setup

	// The breakout test runs on every symbol, not just setups: a close
	// above the pivot fails the near-breakout gate, so a symbol that
	// broke out today can no longer present a setup on the same bar.
	candidate, brkReason := s.brkDetector.Detect(row.symbol, row.series, row.info, setup)
	result.Breakout = candidate

	if setup == nil && candidate == nil {
		result.Reason = reason
		result.Recommendation = composite.Recommendation(0, false)
		log.Debug().Str("symbol", row.symbol).Str("reason", reason).Msg("no setup")
		return result
	}

	patternScore := 0.0
	switch {
	case setup != nil:
		patternScore = setup.Score
		if candidate == nil && brkReason != "" {
			log.Debug().Str("symbol", row.symbol).Str("reason", brkReason).Msg("no breakout")
		}
	case candidate != nil:
		patternScore = candidate.ConfirmationScore
	}

	inputs := composite.Inputs{PatternScore: &patternScore}
	if s.fundamentals != nil {
		if snap, err := s.fundamentals.Fundamentals(ctx, row.symbol); err != nil {
			log.Warn().Str("symbol", row.symbol).Err(err).Msg("fundamentals unavailable")
		} else if snap != nil {
			q := fundamentals.QualityScore(*snap)
			inputs.FundamentalScore = &q
		}
	}
	if s.sentiment != nil {
		if headlines, err := s.sentiment.Headlines(ctx, row.symbol); err != nil {
			log.Warn().Str("symbol", row.symbol).Err(err).Msg("sentiment unavailable")
		} else if len(headlines) > 0 {
			agg := sentiment.Aggregate(row.symbol, headlines)
			inputs.SentimentScore = &agg.Score
		}
	}

	result.CombinedScore = composite.Score(inputs)
	result.Recommendation = composite.Recommendation(result.CombinedScore, result.Breakout != nil)

	log.Info().
		Str("symbol", row.symbol).
		Float64("pattern_score", patternScore).
		Float64("combined_score", result.CombinedScore).
		Bool("setup", result.Setup != nil).
		Bool("breakout", result.Breakout != nil).
		Str("recommendation", result.Recommendation).
		Msg("candidate found")

	return result
}

// Breakouts keeps only results carrying a confirmed breakout, ordered by
// confirmation score descending.
func Breakouts(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Breakout != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Breakout.ConfirmationScore > out[j].Breakout.ConfirmationScore
	})
	return out
}
