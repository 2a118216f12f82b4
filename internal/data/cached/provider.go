// Package cached decorates the data sources with a two-level cache: the
// in-process TTL cache first, the shared Redis cache second, the
// upstream provider last.
package cached

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/basehunter/basehunter/internal/data/cache"
	"github.com/basehunter/basehunter/internal/data/interfaces"
	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
)

// TTLs controls how long each data kind stays cached.
type TTLs struct {
	Series       time.Duration
	Info         time.Duration
	Fundamentals time.Duration
	News         time.Duration
}

// DefaultTTLs keeps price history for ten minutes, metadata and
// fundamentals for six hours, news for thirty minutes.
func DefaultTTLs() TTLs {
	return TTLs{
		Series:       10 * time.Minute,
		Info:         6 * time.Hour,
		Fundamentals: 6 * time.Hour,
		News:         30 * time.Minute,
	}
}

// Source bundles the upstream interfaces the decorator wraps.
type Source interface {
	interfaces.MarketDataSource
	interfaces.FundamentalsSource
	interfaces.NewsSource
}

// Provider caches around an upstream Source. The Redis layer is
// optional; when nil only the local cache is consulted.
type Provider struct {
	upstream Source
	local    interfaces.Cache
	shared   *cache.RedisCache
	ttls     TTLs
}

// NewProvider wraps an upstream source. shared may be nil.
func NewProvider(upstream Source, local interfaces.Cache, shared *cache.RedisCache, ttls TTLs) *Provider {
	return &Provider{upstream: upstream, local: local, shared: shared, ttls: ttls}
}

// DailySeries returns cached history when fresh, fetching otherwise.
func (p *Provider) DailySeries(ctx context.Context, symbol string) (domain.PriceSeries, error) {
	key := "series:" + symbol

	if hit, ok := p.local.Get(key); ok {
		return hit.(domain.PriceSeries), nil
	}
	var series domain.PriceSeries
	if p.sharedGet(ctx, key, &series) {
		p.local.Set(key, series, p.ttls.Series)
		return series, nil
	}

	series, err := p.upstream.DailySeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, series, p.ttls.Series)
	return series, nil
}

// BenchmarkSeries caches the index series under a fixed key.
func (p *Provider) BenchmarkSeries(ctx context.Context) (domain.PriceSeries, error) {
	key := "series:benchmark"

	if hit, ok := p.local.Get(key); ok {
		return hit.(domain.PriceSeries), nil
	}
	var series domain.PriceSeries
	if p.sharedGet(ctx, key, &series) {
		p.local.Set(key, series, p.ttls.Series)
		return series, nil
	}

	series, err := p.upstream.BenchmarkSeries(ctx)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, series, p.ttls.Series)
	return series, nil
}

// InstrumentInfo returns cached metadata when fresh.
func (p *Provider) InstrumentInfo(ctx context.Context, symbol string) (*domain.InstrumentInfo, error) {
	key := "info:" + symbol

	if hit, ok := p.local.Get(key); ok {
		return hit.(*domain.InstrumentInfo), nil
	}
	var info domain.InstrumentInfo
	if p.sharedGet(ctx, key, &info) {
		p.local.Set(key, &info, p.ttls.Info)
		return &info, nil
	}

	fetched, err := p.upstream.InstrumentInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, fetched, p.ttls.Info)
	return fetched, nil
}

// Fundamentals returns the cached snapshot when fresh.
func (p *Provider) Fundamentals(ctx context.Context, symbol string) (*fundamentals.Snapshot, error) {
	key := "fundamentals:" + symbol

	if hit, ok := p.local.Get(key); ok {
		return hit.(*fundamentals.Snapshot), nil
	}
	var snap fundamentals.Snapshot
	if p.sharedGet(ctx, key, &snap) {
		p.local.Set(key, &snap, p.ttls.Fundamentals)
		return &snap, nil
	}

	fetched, err := p.upstream.Fundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, fetched, p.ttls.Fundamentals)
	return fetched, nil
}

// Headlines returns cached scored headlines when fresh.
func (p *Provider) Headlines(ctx context.Context, symbol string) ([]sentiment.HeadlineScore, error) {
	key := "news:" + symbol

	if hit, ok := p.local.Get(key); ok {
		return hit.([]sentiment.HeadlineScore), nil
	}
	var headlines []sentiment.HeadlineScore
	if p.sharedGet(ctx, key, &headlines) {
		p.local.Set(key, headlines, p.ttls.News)
		return headlines, nil
	}

	fetched, err := p.upstream.Headlines(ctx, symbol)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, fetched, p.ttls.News)
	return fetched, nil
}

// CacheStats exposes the local cache counters.
func (p *Provider) CacheStats() interfaces.CacheStats {
	return p.local.Stats()
}

func (p *Provider) sharedGet(ctx context.Context, key string, dest interface{}) bool {
	if p.shared == nil {
		return false
	}
	hit, err := p.shared.Get(ctx, key, dest)
	if err != nil {
		// A broken shared cache must not break scans.
		log.Warn().Str("key", key).Err(err).Msg("shared cache read failed")
		return false
	}
	return hit
}

func (p *Provider) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	p.local.Set(key, value, ttl)
	if p.shared != nil {
		if err := p.shared.Set(ctx, key, value, ttl); err != nil {
			log.Warn().Str("key", key).Err(err).Msg("shared cache write failed")
		}
	}
}
