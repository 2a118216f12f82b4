// Package yahoo fetches daily bars, instrument metadata, fundamentals
// and news headlines from the Yahoo Finance public endpoints. Every
// request passes a token-bucket rate limiter and a circuit breaker, so a
// misbehaving upstream degrades to fast failures instead of pile-ups.
package yahoo

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/basehunter/basehunter/internal/config"
	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
)

const (
	chartPath        = "/v8/finance/chart/"
	quoteSummaryPath = "/v10/finance/quoteSummary/"
	newsPath         = "/rss/2.0/headline"

	// Two years of daily bars comfortably covers the 252-bar relative
	// strength lookback plus the detection window.
	defaultRange = "2y"
)

// Client talks to the Yahoo Finance endpoints.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	newsBaseURL     string
	userAgent       string
	benchmarkSymbol string
	limiter         *rate.Limiter
	breaker         *gobreaker.CircuitBreaker
}

// NewClient builds a client from the provider configuration. The
// market_data entry drives rate limiting and the breaker; the news entry
// contributes only its base URL.
func NewClient(providers *config.ProvidersConfig) *Client {
	md := providers.Provider("market_data")
	news := providers.Provider("news")

	benchmark := providers.Global.BenchmarkSymbol
	if benchmark == "" {
		benchmark = "^GSPC"
	}

	threshold := uint32(5)
	if md.Circuit.FailureThreshold > 0 {
		threshold = uint32(md.Circuit.FailureThreshold)
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "yahoo",
		Timeout: md.Circuit.OpenInterval(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state change")
		},
	})

	return &Client{
		httpClient:      &http.Client{Timeout: md.RequestTimeout()},
		baseURL:         md.BaseURL,
		newsBaseURL:     news.BaseURL,
		userAgent:       providers.Global.UserAgent,
		benchmarkSymbol: benchmark,
		limiter:         rate.NewLimiter(rate.Limit(md.RPS), md.Burst),
		breaker:         breaker,
	}
}

// DailySeries fetches the daily OHLCV history for a symbol.
func (c *Client) DailySeries(ctx context.Context, symbol string) (domain.PriceSeries, error) {
	query := url.Values{"range": {defaultRange}, "interval": {"1d"}}
	endpoint := c.baseURL + chartPath + url.PathEscape(symbol) + "?" + query.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", symbol, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chart for %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart for %s: empty result", symbol)
	}

	series, err := resp.Chart.Result[0].toSeries()
	if err != nil {
		return nil, fmt.Errorf("chart for %s: %w", symbol, err)
	}
	return series, nil
}

// BenchmarkSeries fetches the configured index series.
func (c *Client) BenchmarkSeries(ctx context.Context) (domain.PriceSeries, error) {
	return c.DailySeries(ctx, c.benchmarkSymbol)
}

// InstrumentInfo fetches name, market cap and sector for a symbol.
func (c *Client) InstrumentInfo(ctx context.Context, symbol string) (*domain.InstrumentInfo, error) {
	summary, err := c.quoteSummary(ctx, symbol, "price,assetProfile")
	if err != nil {
		return nil, err
	}

	info := &domain.InstrumentInfo{Symbol: symbol}
	if p := summary.Price; p != nil {
		info.Name = p.LongName
		info.MarketCap = p.MarketCap.Raw
	}
	if a := summary.AssetProfile; a != nil {
		info.Sector = a.Sector
		info.Industry = a.Industry
	}
	return info, nil
}

// Fundamentals fetches the fundamental snapshot for a symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (*fundamentals.Snapshot, error) {
	summary, err := c.quoteSummary(ctx, symbol, "price,assetProfile,financialData,defaultKeyStatistics,summaryDetail")
	if err != nil {
		return nil, err
	}

	snap := &fundamentals.Snapshot{Symbol: symbol}
	if p := summary.Price; p != nil {
		snap.MarketCap = p.MarketCap.Raw
	}
	if a := summary.AssetProfile; a != nil {
		snap.Sector = a.Sector
		snap.Industry = a.Industry
	}
	if f := summary.FinancialData; f != nil {
		snap.RevenueGrowth = f.RevenueGrowth.Raw
		snap.EarningsGrowth = f.EarningsGrowth.Raw
		snap.ProfitMargin = f.ProfitMargins.Raw
		snap.ReturnOnEquity = f.ReturnOnEquity.Raw
		snap.ReturnOnAssets = f.ReturnOnAssets.Raw
		snap.DebtToEquity = f.DebtToEquity.Raw
		snap.CurrentRatio = f.CurrentRatio.Raw
	}
	if k := summary.DefaultKeyStatistics; k != nil {
		snap.EPS = k.TrailingEps.Raw
		snap.PBRatio = k.PriceToBook.Raw
		snap.Beta = k.Beta.Raw
	}
	if d := summary.SummaryDetail; d != nil {
		snap.PERatio = d.TrailingPE.Raw
		snap.DividendYield = d.DividendYield.Raw
	}
	return snap, nil
}

// Headlines fetches the RSS news feed for a symbol and scores each title.
func (c *Client) Headlines(ctx context.Context, symbol string) ([]sentiment.HeadlineScore, error) {
	query := url.Values{"s": {symbol}, "region": {"US"}, "lang": {"en-US"}}
	endpoint := c.newsBaseURL + newsPath + "?" + query.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch news for %s: %w", symbol, err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode news for %s: %w", symbol, err)
	}

	headlines := make([]sentiment.HeadlineScore, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if item.Title == "" {
			continue
		}
		headlines = append(headlines, sentiment.HeadlineScore{
			Headline: item.Title,
			Polarity: sentiment.ScoreHeadline(item.Title),
		})
	}
	return headlines, nil
}

func (c *Client) quoteSummary(ctx context.Context, symbol, modules string) (*quoteSummaryResult, error) {
	query := url.Values{"modules": {modules}}
	endpoint := c.baseURL + quoteSummaryPath + url.PathEscape(symbol) + "?" + query.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch quote summary for %s: %w", symbol, err)
	}

	var resp quoteSummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode quote summary for %s: %w", symbol, err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quote summary error for %s: %s", symbol, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quote summary for %s: empty result", symbol)
	}
	return &resp.QuoteSummary.Result[0], nil
}

// get performs one rate-limited request through the circuit breaker.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json, application/xml, text/xml")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// toSeries converts a chart result into a validated price series. Bars
// with missing fields (halts, partial sessions) are dropped the way the
// upstream chart consumers drop NaN rows.
func (r *chartResult) toSeries() (domain.PriceSeries, error) {
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data")
	}
	quote := r.Indicators.Quote[0]

	series := make(domain.PriceSeries, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) || i >= len(quote.Volume) {
			break
		}
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		series = append(series, domain.PriceBar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: *quote.Volume[i],
		})
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	Price *struct {
		LongName  string   `json:"longName"`
		MarketCap rawValue `json:"marketCap"`
	} `json:"price"`
	AssetProfile *struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"assetProfile"`
	FinancialData *struct {
		RevenueGrowth  rawValue `json:"revenueGrowth"`
		EarningsGrowth rawValue `json:"earningsGrowth"`
		ProfitMargins  rawValue `json:"profitMargins"`
		ReturnOnEquity rawValue `json:"returnOnEquity"`
		ReturnOnAssets rawValue `json:"returnOnAssets"`
		DebtToEquity   rawValue `json:"debtToEquity"`
		CurrentRatio   rawValue `json:"currentRatio"`
	} `json:"financialData"`
	DefaultKeyStatistics *struct {
		TrailingEps rawValue `json:"trailingEps"`
		PriceToBook rawValue `json:"priceToBook"`
		Beta        rawValue `json:"beta"`
	} `json:"defaultKeyStatistics"`
	SummaryDetail *struct {
		TrailingPE    rawValue `json:"trailingPE"`
		DividendYield rawValue `json:"dividendYield"`
	} `json:"summaryDetail"`
}

// rawValue matches Yahoo's {"raw": n, "fmt": "..."} number wrapper.
type rawValue struct {
	Raw float64 `json:"raw"`
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			PubDate string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}
