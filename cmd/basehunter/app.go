package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/basehunter/basehunter/internal/config"
	"github.com/basehunter/basehunter/internal/data/cache"
	"github.com/basehunter/basehunter/internal/data/cached"
	"github.com/basehunter/basehunter/internal/data/yahoo"
	"github.com/basehunter/basehunter/internal/persistence"
	"github.com/basehunter/basehunter/internal/persistence/postgres"
	"github.com/basehunter/basehunter/internal/scan/pipeline"
	"github.com/basehunter/basehunter/internal/universe"
)

// app wires the data stack, scanner and optional persistence from the
// config files plus REDIS_URL / DATABASE_URL environment variables.
type app struct {
	scanner      *pipeline.Scanner
	universe     *universe.Manager
	provider     *cached.Provider
	fundamentals pipeline.FundamentalsProvider
	sentiment    pipeline.SentimentProvider
	repo         persistence.ScanRepo

	local *cache.TTLCache
	rdb   *redis.Client
	db    *sqlx.DB
}

func buildApp(ctx context.Context, flags *rootFlags) (*app, error) {
	scannerCfg := &config.ScannerConfig{}
	if flags.scannerConfig != "" {
		loaded, err := config.LoadScannerConfig(flags.scannerConfig)
		if err != nil {
			return nil, err
		}
		scannerCfg = loaded
	}

	providersCfg := config.DefaultProvidersConfig()
	if flags.providersConfig != "" {
		loaded, err := config.LoadProvidersConfig(flags.providersConfig)
		if err != nil {
			return nil, err
		}
		providersCfg = loaded
	}

	uni, err := universe.Load(flags.universeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load universe: %w", err)
	}

	a := &app{universe: uni}

	providersCfg.Global.BenchmarkSymbol = benchmarkSymbol(providersCfg, uni)
	client := yahoo.NewClient(providersCfg)
	a.local = cache.NewTTLCache(4096)

	var shared *cache.RedisCache
	if url := os.Getenv("REDIS_URL"); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.rdb = redis.NewClient(opts)
		shared = cache.NewRedisCache(a.rdb, appName)
		if err := shared.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, continuing with local cache only")
		} else {
			log.Info().Msg("shared redis cache enabled")
		}
	}

	ttls := cached.DefaultTTLs()
	if p := providersCfg.Provider("market_data"); p.TTLSecs > 0 {
		ttls.Series = p.TTL()
	}
	if p := providersCfg.Provider("fundamentals"); p.TTLSecs > 0 {
		ttls.Info = p.TTL()
		ttls.Fundamentals = p.TTL()
	}
	if p := providersCfg.Provider("news"); p.TTLSecs > 0 {
		ttls.News = p.TTL()
	}

	a.provider = cached.NewProvider(client, a.local, shared, ttls)

	if providersCfg.Provider("fundamentals").Enabled {
		a.fundamentals = a.provider
	}
	if providersCfg.Provider("news").Enabled {
		a.sentiment = a.provider
	}

	a.scanner = pipeline.NewScanner(scannerCfg.PipelineConfig(), a.provider, a.provider, a.fundamentals, a.sentiment)

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := postgres.Connect(ctx, dsn)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.db = db
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		a.repo = postgres.NewScanRepo(db, 10*time.Second)
		log.Info().Msg("postgres persistence enabled")
	}

	return a, nil
}

// benchmarkSymbol prefers the universe file's benchmark over the
// provider config default.
func benchmarkSymbol(providers *config.ProvidersConfig, uni *universe.Manager) string {
	if b := uni.Benchmark(); b != "" {
		return b
	}
	return providers.Global.BenchmarkSymbol
}

func (a *app) Close() {
	if a.local != nil {
		a.local.Stop()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("postgres close failed")
		}
	}
}
