package cached

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basehunter/basehunter/internal/data/cache"
	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/scan/sim"
)

type countingSource struct {
	*sim.FixtureProvider
	seriesCalls int
	infoCalls   int
}

func (c *countingSource) DailySeries(ctx context.Context, symbol string) (domain.PriceSeries, error) {
	c.seriesCalls++
	return c.FixtureProvider.DailySeries(ctx, symbol)
}

func (c *countingSource) InstrumentInfo(ctx context.Context, symbol string) (*domain.InstrumentInfo, error) {
	c.infoCalls++
	return c.FixtureProvider.InstrumentInfo(ctx, symbol)
}

func newCountingSource() *countingSource {
	fp := sim.NewFixtureProvider()
	fp.SetSeries("AAPL", sim.FlatSeries(5, 100, 1000))
	fp.SetInfo("AAPL", &domain.InstrumentInfo{Symbol: "AAPL", MarketCap: 3e12})
	fp.SetBenchmark(sim.FlatSeries(5, 50, 500))
	return &countingSource{FixtureProvider: fp}
}

func TestProvider_LocalCacheAvoidsRefetch(t *testing.T) {
	source := newCountingSource()
	local := cache.NewTTLCache(100)
	defer local.Stop()

	p := NewProvider(source, local, nil, DefaultTTLs())
	ctx := context.Background()

	first, err := p.DailySeries(ctx, "AAPL")
	require.NoError(t, err)
	second, err := p.DailySeries(ctx, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.seriesCalls, "second read is served locally")

	_, err = p.InstrumentInfo(ctx, "AAPL")
	require.NoError(t, err)
	_, err = p.InstrumentInfo(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, source.infoCalls)
}

func TestProvider_UpstreamErrorPassesThrough(t *testing.T) {
	source := newCountingSource()
	local := cache.NewTTLCache(100)
	defer local.Stop()

	p := NewProvider(source, local, nil, DefaultTTLs())
	_, err := p.DailySeries(context.Background(), "UNKNOWN")
	require.Error(t, err)
}

func TestProvider_SharedCacheHitSkipsUpstream(t *testing.T) {
	source := newCountingSource()
	local := cache.NewTTLCache(100)
	defer local.Stop()

	series := sim.FlatSeries(5, 100, 1000)
	payload, err := json.Marshal(series)
	require.NoError(t, err)

	db, mock := redismock.NewClientMock()
	shared := cache.NewRedisCache(db, "test")
	mock.ExpectGet("test:series:AAPL").SetVal(string(payload))

	p := NewProvider(source, local, shared, DefaultTTLs())
	got, err := p.DailySeries(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, series, got)
	assert.Equal(t, 0, source.seriesCalls, "shared hit never reaches upstream")

	// The hit is promoted into the local cache.
	_, ok := local.Get("series:AAPL")
	assert.True(t, ok)
}

func TestProvider_SharedCacheFailureFallsThrough(t *testing.T) {
	source := newCountingSource()
	local := cache.NewTTLCache(100)
	defer local.Stop()

	db, mock := redismock.NewClientMock()
	shared := cache.NewRedisCache(db, "test")
	mock.ExpectGet("test:series:AAPL").SetErr(assert.AnError)
	payload, _ := json.Marshal(sim.FlatSeries(5, 100, 1000))
	mock.ExpectSet("test:series:AAPL", payload, 10*time.Minute).SetVal("OK")

	p := NewProvider(source, local, shared, DefaultTTLs())
	_, err := p.DailySeries(context.Background(), "AAPL")
	require.NoError(t, err, "a broken shared cache degrades to upstream")
	assert.Equal(t, 1, source.seriesCalls)
}
