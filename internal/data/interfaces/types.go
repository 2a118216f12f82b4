// Package interfaces holds the data layer contracts shared across
// providers, caches and the scan pipeline.
package interfaces

import (
	"context"
	"time"

	"github.com/basehunter/basehunter/internal/domain"
	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
)

// Cache is a TTL key/value store for provider responses.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Stats() CacheStats
	Clear()
	Stop()
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Entries   int64   `json:"entries"`
	HitRatio  float64 `json:"hit_ratio"`
}

// MarketDataSource fetches price history and instrument metadata.
type MarketDataSource interface {
	DailySeries(ctx context.Context, symbol string) (domain.PriceSeries, error)
	InstrumentInfo(ctx context.Context, symbol string) (*domain.InstrumentInfo, error)
	BenchmarkSeries(ctx context.Context) (domain.PriceSeries, error)
}

// FundamentalsSource fetches fundamental snapshots.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (*fundamentals.Snapshot, error)
}

// NewsSource fetches scored headlines.
type NewsSource interface {
	Headlines(ctx context.Context, symbol string) ([]sentiment.HeadlineScore, error)
}
