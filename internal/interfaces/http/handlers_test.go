package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
	"github.com/basehunter/basehunter/internal/scan/pipeline"
	"github.com/basehunter/basehunter/internal/scan/sim"
	"github.com/basehunter/basehunter/internal/universe"
)

const testUniverseYAML = `
universe:
  name: "Test Universe"
  benchmark: "^GSPC"
sectors:
  technology:
    - symbol: ACME
    - symbol: LAG1
    - symbol: LAG2
    - symbol: LAG3
`

// contractingBase builds a 150-bar base with three shrinking pullbacks
// (18, 12, 8 percent) under a 100 pivot, closing at 98.
func contractingBase() domain.PriceSeries {
	type knot struct {
		idx   int
		price float64
	}
	knots := []knot{{0, 95}, {30, 100}}
	idx := 30
	for _, d := range []float64{18, 12, 8} {
		idx += 15
		knots = append(knots, knot{idx, 100 - d})
		idx += 15
		knots = append(knots, knot{idx, 100})
	}
	knots[len(knots)-1] = knot{149, 98}

	first := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s := make(domain.PriceSeries, 150)
	k := 0
	for i := 0; i < 150; i++ {
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
			Volume: 2000 - 1000*float64(i)/149,
		}
	}
	return s
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	fp := sim.NewFixtureProvider()
	fp.SetBenchmark(sim.FlatSeries(300, 100, 1000))
	fp.SetSeries("ACME", contractingBase())
	fp.SetInfo("ACME", &domain.InstrumentInfo{Symbol: "ACME", Name: "Acme Corp", MarketCap: 5_000_000_000})
	fp.SetFundamentals("ACME", &fundamentals.Snapshot{
		Symbol:         "ACME",
		MarketCap:      300_000_000_000,
		RevenueGrowth:  0.30,
		EarningsGrowth: 0.40,
		ProfitMargin:   0.25,
		ReturnOnEquity: 0.30,
		DebtToEquity:   20,
	})
	fp.SetHeadlines("ACME", []sentiment.HeadlineScore{
		{Headline: "Acme posts record quarter", Polarity: 0.8},
	})
	for _, lag := range []string{"LAG1", "LAG2", "LAG3"} {
		fp.SetSeries(lag, sim.TrendSeries(300, 100, 80, 1000))
		fp.SetInfo(lag, &domain.InstrumentInfo{Symbol: lag, MarketCap: 5_000_000_000})
	}

	cfg := pipeline.DefaultConfig()
	cfg.VCP.FinalBaseDepthMaxPct = 20
	cfg.Workers = 2
	scanner := pipeline.NewScanner(cfg, fp, fp, nil, nil)

	uni, err := universe.Parse([]byte(testUniverseYAML))
	require.NoError(t, err)

	metrics := NewMetricsRegistry()
	handlers := NewHandlers(scanner, uni, fp, fp, metrics, "test")
	return NewServer(DefaultServerConfig(), handlers, metrics)
}

func doRequest(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.NotEmpty(t, health.System.GoVersion)
	assert.Greater(t, health.System.NumGoroutines, 0)
}

func TestScanVCPEndpoint_ReturnsOnlySetups(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/scan/vcp")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Test Universe", resp.Universe)
	assert.Equal(t, 4, resp.Summary.SymbolsEvaluated)
	require.Len(t, resp.Results, 1, "laggards are filtered out")
	assert.Equal(t, "ACME", resp.Results[0].Symbol)
	require.NotNil(t, resp.Results[0].Setup)
	assert.InDelta(t, 100.0, resp.Results[0].Setup.PivotPrice, 0.1)
}

func TestScanBreakoutsEndpoint_EmptyWhenNothingFired(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/scan/breakouts")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results, "close below pivot confirms nothing")
	assert.Equal(t, 1, resp.Summary.SetupsFound)
}

func TestScanFullEndpoint_ReturnsEverySymbol(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/scan/full")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 4)
	assert.Equal(t, "ACME", resp.Results[0].Symbol, "ranked by combined score")
}

func TestStockVCPEndpoint(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/stock/ACME/vcp")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SymbolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ACME", resp.Result.Symbol)
}

func TestStockEndpoint_UnknownSymbol(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/stock/TSLA/vcp")

	require.Equal(t, http.StatusNotFound, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "unknown_symbol", errResp.Code)
	assert.NotEmpty(t, errResp.RequestID)
}

func TestUniverseEndpoint(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/universe")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp UniverseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)
	assert.Contains(t, resp.Symbols, "ACME")
}

func TestNotFoundRoute(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/nope")

	require.Equal(t, http.StatusNotFound, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "endpoint_not_found", errResp.Code)
}

func TestScanBreakoutsEndpoint_RanksByConfirmation(t *testing.T) {
	fp := sim.NewFixtureProvider()
	fp.SetBenchmark(sim.FlatSeries(300, 100, 1000))
	surge := sim.FlatSeries(150, 100, 1000)
	last := &surge[len(surge)-1]
	last.Open, last.High, last.Low, last.Close, last.Volume = 101, 106, 100.5, 105, 1500
	fp.SetSeries("SURGE", surge)
	fp.SetInfo("SURGE", &domain.InstrumentInfo{Symbol: "SURGE", MarketCap: 5_000_000_000})
	fp.SetSeries("LAG1", sim.TrendSeries(300, 100, 80, 1000))
	fp.SetInfo("LAG1", &domain.InstrumentInfo{Symbol: "LAG1", MarketCap: 5_000_000_000})

	cfg := pipeline.DefaultConfig()
	cfg.Workers = 2
	scanner := pipeline.NewScanner(cfg, fp, fp, nil, nil)
	uni, err := universe.Parse([]byte("sectors:\n  technology:\n    - symbol: SURGE\n    - symbol: LAG1\n"))
	require.NoError(t, err)
	metrics := NewMetricsRegistry()
	server := NewServer(DefaultServerConfig(), NewHandlers(scanner, uni, nil, nil, metrics, "test"), metrics)

	rec := doRequest(t, server, "/api/v1/scan/breakouts")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.BreakoutsFound)
	require.Len(t, resp.Results, 1, "a pivot clear surfaces without a setup")
	require.NotNil(t, resp.Results[0].Breakout)
	assert.Equal(t, "SURGE", resp.Results[0].Symbol)
	assert.InDelta(t, 1.5, resp.Results[0].Breakout.RelativeVolume, 1e-9)
}

func TestStockFundamentalsEndpoint(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/stock/ACME/fundamentals")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp FundamentalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ACME", resp.Symbol)
	require.NotNil(t, resp.Fundamentals)
	assert.Greater(t, resp.QualityScore, 50.0)
	assert.Equal(t, "Large Cap", resp.MarketCapClass)
}

func TestStockFundamentalsEndpoint_NoData(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/stock/LAG1/fundamentals")

	require.Equal(t, http.StatusNotFound, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "fundamentals_unavailable", errResp.Code)
}

func TestStockSentimentEndpoint(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, "/api/v1/stock/ACME/sentiment")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SentimentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ACME", resp.Sentiment.Symbol)
	assert.Equal(t, sentiment.Positive, resp.Sentiment.Label)
	assert.InDelta(t, 0.8, resp.Sentiment.Score, 1e-9)
	assert.Equal(t, 1, resp.Sentiment.NewsCount)
}

func TestStockFundamentalsEndpoint_DisabledProvider(t *testing.T) {
	fp := sim.NewFixtureProvider()
	fp.SetBenchmark(sim.FlatSeries(300, 100, 1000))
	fp.SetSeries("ACME", contractingBase())
	fp.SetInfo("ACME", &domain.InstrumentInfo{Symbol: "ACME", MarketCap: 5_000_000_000})
	scanner := pipeline.NewScanner(pipeline.DefaultConfig(), fp, fp, nil, nil)
	uni, err := universe.Parse([]byte(testUniverseYAML))
	require.NoError(t, err)
	metrics := NewMetricsRegistry()
	server := NewServer(DefaultServerConfig(), NewHandlers(scanner, uni, nil, nil, metrics, "test"), metrics)

	rec := doRequest(t, server, "/api/v1/stock/ACME/fundamentals")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "fundamentals_disabled", errResp.Code)
}
