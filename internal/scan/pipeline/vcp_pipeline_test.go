package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/breakout"
	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
	"github.com/basehunter/basehunter/internal/domain/vcp"
	"github.com/basehunter/basehunter/internal/scan/sim"
)

type knot struct {
	idx   int
	price float64
}

func buildSwings(n int, knots []knot) domain.PriceSeries {
	first := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s := make(domain.PriceSeries, n)
	k := 0
	for i := 0; i < n; i++ {
		for k+1 < len(knots) && knots[k+1].idx <= i {
			k++
		}
		price := knots[k].price
		if k+1 < len(knots) {
			a, b := knots[k], knots[k+1]
			price = a.price + (b.price-a.price)*float64(i-a.idx)/float64(b.idx-a.idx)
		}
		s[i] = domain.PriceBar{
			Date:   first.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 2000 - 1000*float64(i)/float64(n-1),
		}
	}
	return s
}

func contractingBase() domain.PriceSeries {
	knots := []knot{{0, 95}, {30, 100}}
	idx := 30
	for _, d := range []float64{18, 12, 8} {
		idx += 15
		knots = append(knots, knot{idx, 100 - d})
		idx += 15
		knots = append(knots, knot{idx, 100})
	}
	knots[len(knots)-1] = knot{149, 98}
	return buildSwings(150, knots)
}

func scanConfig() Config {
	cfg := DefaultConfig()
	cfg.VCP.FinalBaseDepthMaxPct = 20
	cfg.Workers = 2
	return cfg
}

func bigCap(symbol, name string) *domain.InstrumentInfo {
	return &domain.InstrumentInfo{Symbol: symbol, Name: name, MarketCap: 5_000_000_000}
}

// newUniverseProvider serves one symbol carrying a contracting base plus
// laggards that place it at the top of the relative strength cohort.
func newUniverseProvider() *sim.FixtureProvider {
	fp := sim.NewFixtureProvider()
	fp.SetBenchmark(sim.FlatSeries(300, 100, 1000))
	fp.SetSeries("ACME", contractingBase())
	fp.SetInfo("ACME", bigCap("ACME", "Acme Corp"))
	for _, lag := range []string{"LAG1", "LAG2", "LAG3"} {
		fp.SetSeries(lag, sim.TrendSeries(300, 100, 80, 1000))
		fp.SetInfo(lag, bigCap(lag, lag))
	}
	return fp
}

func TestScan_FindsSetupAndRanksFirst(t *testing.T) {
	fp := newUniverseProvider()
	scanner := NewScanner(scanConfig(), fp, fp, nil, nil)

	results, summary, err := scanner.Scan(context.Background(), []string{"LAG1", "ACME", "LAG2", "LAG3"})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, 4, summary.SymbolsEvaluated)
	assert.Equal(t, 1, summary.SetupsFound)
	assert.Equal(t, 0, summary.BreakoutsFound)
	assert.Equal(t, 0, summary.FetchErrors)

	first := results[0]
	assert.Equal(t, "ACME", first.Symbol, "the only setup ranks first")
	require.NotNil(t, first.Setup)
	assert.Nil(t, first.Breakout, "close sits below the pivot")
	assert.Greater(t, first.CombinedScore, 0.0)
	assert.InDelta(t, first.Setup.Score, first.CombinedScore, 1e-9,
		"pattern is the only component without enrichment providers")

	for _, r := range results[1:] {
		assert.Nil(t, r.Setup)
		assert.NotEmpty(t, r.Reason)
	}
}

func TestScan_TieBreakKeepsUniverseOrder(t *testing.T) {
	fp := newUniverseProvider()
	scanner := NewScanner(scanConfig(), fp, fp, nil, nil)

	results, _, err := scanner.Scan(context.Background(), []string{"LAG3", "LAG1", "LAG2"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// All three score zero; the scan order must survive the sort.
	assert.Equal(t, "LAG3", results[0].Symbol)
	assert.Equal(t, "LAG1", results[1].Symbol)
	assert.Equal(t, "LAG2", results[2].Symbol)
}

func TestScan_EnrichmentRaisesCombinedScore(t *testing.T) {
	fp := newUniverseProvider()
	fp.SetFundamentals("ACME", &fundamentals.Snapshot{
		Symbol:         "ACME",
		RevenueGrowth:  0.30,
		EarningsGrowth: 0.40,
		ProfitMargin:   0.25,
		ReturnOnEquity: 0.30,
		DebtToEquity:   20,
	})
	fp.SetHeadlines("ACME", []sentiment.HeadlineScore{
		{Headline: "Acme posts record quarter", Polarity: 0.8},
	})

	scanner := NewScanner(scanConfig(), fp, fp, fp, fp)
	results, _, err := scanner.Scan(context.Background(), []string{"ACME", "LAG1", "LAG2", "LAG3"})
	require.NoError(t, err)

	acme := results[0]
	require.Equal(t, "ACME", acme.Symbol)
	require.NotNil(t, acme.Setup)
	assert.NotEqual(t, acme.Setup.Score, acme.CombinedScore,
		"fundamentals and sentiment must contribute")
	assert.Greater(t, acme.CombinedScore, 0.0)
	assert.LessOrEqual(t, acme.CombinedScore, 100.0)
}

func TestScan_FetchErrorSkipsSymbol(t *testing.T) {
	fp := newUniverseProvider()
	scanner := NewScanner(scanConfig(), fp, fp, nil, nil)

	results, summary, err := scanner.Scan(context.Background(), []string{"ACME", "MISSING", "LAG1", "LAG2", "LAG3"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FetchErrors)
	assert.Equal(t, 4, summary.SymbolsEvaluated)
	for _, r := range results {
		assert.NotEqual(t, "MISSING", r.Symbol)
	}
}

func TestScan_BenchmarkFailureAborts(t *testing.T) {
	fp := newUniverseProvider()
	fp.SetFailureSimulator(&sim.FailureSimulator{BenchmarkError: true, ErrorMessage: "index feed down"})

	scanner := NewScanner(scanConfig(), fp, fp, nil, nil)
	_, _, err := scanner.Scan(context.Background(), []string{"ACME"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index feed down")
}

func TestScan_ContextCancellation(t *testing.T) {
	fp := newUniverseProvider()
	scanner := NewScanner(scanConfig(), fp, fp, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := scanner.Scan(ctx, []string{"ACME", "LAG1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_MaxSymbolsTruncates(t *testing.T) {
	fp := newUniverseProvider()
	cfg := scanConfig()
	cfg.MaxSymbols = 2
	scanner := NewScanner(cfg, fp, fp, nil, nil)

	results, summary, err := scanner.Scan(context.Background(), []string{"LAG1", "LAG2", "LAG3", "ACME"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, summary.SymbolsEvaluated)
}

func TestScanSymbol_SingleSymbol(t *testing.T) {
	fp := newUniverseProvider()
	scanner := NewScanner(scanConfig(), fp, fp, nil, nil)

	cohort := domain.Cohort{
		"ACME": contractingBase(),
		"LAG1": sim.TrendSeries(300, 100, 80, 1000),
		"LAG2": sim.TrendSeries(300, 100, 80, 1000),
		"LAG3": sim.TrendSeries(300, 100, 80, 1000),
	}
	result, err := scanner.ScanSymbol(context.Background(), "ACME", cohort)
	require.NoError(t, err)
	require.NotNil(t, result.Setup)
	assert.Equal(t, "ACME", result.Symbol)
	assert.InDelta(t, 100.0, result.Setup.PivotPrice, 0.1)
}

func TestScanSymbol_VCPConfigRespected(t *testing.T) {
	fp := newUniverseProvider()
	cfg := scanConfig()
	cfg.VCP = vcp.DefaultConfig() // 15% ceiling rejects the 18% base

	scanner := NewScanner(cfg, fp, fp, nil, nil)
	cohort := domain.Cohort{
		"ACME": contractingBase(),
		"LAG1": sim.TrendSeries(300, 100, 80, 1000),
		"LAG2": sim.TrendSeries(300, 100, 80, 1000),
		"LAG3": sim.TrendSeries(300, 100, 80, 1000),
	}
	result, err := scanner.ScanSymbol(context.Background(), "ACME", cohort)
	require.NoError(t, err)
	assert.Nil(t, result.Setup)
	assert.Contains(t, result.Reason, "base_too_deep")
}

// surgeSeries builds a 150-bar flat base whose final bar clears the
// 100-bar pivot on one and a half times average volume.
func surgeSeries() domain.PriceSeries {
	s := sim.FlatSeries(150, 100, 1000)
	last := &s[len(s)-1]
	last.Open = 101
	last.High = 106
	last.Low = 100.5
	last.Close = 105
	last.Volume = 1500
	return s
}

func TestScan_PivotClearReportsBreakout(t *testing.T) {
	fp := newUniverseProvider()
	fp.SetSeries("SURGE", surgeSeries())
	fp.SetInfo("SURGE", bigCap("SURGE", "Surge Inc"))
	scanner := NewScanner(scanConfig(), fp, fp, nil, nil)

	results, summary, err := scanner.Scan(context.Background(), []string{"SURGE", "LAG1", "LAG2", "LAG3"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.BreakoutsFound)
	assert.Equal(t, 0, summary.SetupsFound)

	first := results[0]
	assert.Equal(t, "SURGE", first.Symbol, "the breakout outranks the laggards")
	require.NotNil(t, first.Breakout)
	assert.Nil(t, first.Setup, "a close above the pivot cannot also present a base")
	assert.InDelta(t, 1.5, first.Breakout.RelativeVolume, 1e-9)
	assert.InDelta(t, first.Breakout.ConfirmationScore, first.CombinedScore, 1e-9,
		"confirmation stands in for the pattern component without a setup")
	assert.NotEmpty(t, first.Recommendation)
}

func TestScanSymbol_ReportsBreakoutWithoutSetup(t *testing.T) {
	fp := newUniverseProvider()
	fp.SetSeries("SURGE", surgeSeries())
	fp.SetInfo("SURGE", bigCap("SURGE", "Surge Inc"))
	scanner := NewScanner(scanConfig(), fp, fp, nil, nil)

	result, err := scanner.ScanSymbol(context.Background(), "SURGE", domain.Cohort{
		"SURGE": surgeSeries(),
		"LAG1":  sim.TrendSeries(300, 100, 80, 1000),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Breakout)
	assert.Nil(t, result.Setup)
	assert.Greater(t, result.Breakout.ConfirmationScore, 0.0)
}

func TestBreakouts_OrdersByConfirmation(t *testing.T) {
	weak := Result{Symbol: "WEAK", Breakout: &breakout.Candidate{Symbol: "WEAK", ConfirmationScore: 40}}
	strong := Result{Symbol: "STRONG", Breakout: &breakout.Candidate{Symbol: "STRONG", ConfirmationScore: 80}}
	plain := Result{Symbol: "PLAIN", CombinedScore: 90}

	got := Breakouts([]Result{plain, weak, strong})
	require.Len(t, got, 2, "symbols without a breakout are dropped")
	assert.Equal(t, "STRONG", got[0].Symbol)
	assert.Equal(t, "WEAK", got[1].Symbol)
}
