package http

import (
	"time"

	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
	"github.com/basehunter/basehunter/internal/scan/pipeline"
)

// ErrorResponse is the standardized error payload.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports process health.
type HealthResponse struct {
	Status    string       `json:"status"`
	Version   string       `json:"version"`
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime"`
	System    SystemHealth `json:"system"`
}

// SystemHealth carries runtime diagnostics.
type SystemHealth struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAllocMB    uint64 `json:"mem_alloc_mb"`
}

// ScanResponse wraps a universe scan's results.
type ScanResponse struct {
	RequestID string            `json:"request_id"`
	Universe  string            `json:"universe"`
	Summary   pipeline.Summary  `json:"summary"`
	Results   []pipeline.Result `json:"results"`
}

// SymbolResponse wraps a single-symbol evaluation.
type SymbolResponse struct {
	RequestID string          `json:"request_id"`
	Result    pipeline.Result `json:"result"`
}

// FundamentalsResponse wraps a symbol's quality snapshot.
type FundamentalsResponse struct {
	RequestID      string                 `json:"request_id"`
	Symbol         string                 `json:"symbol"`
	Fundamentals   *fundamentals.Snapshot `json:"fundamentals"`
	QualityScore   float64                `json:"quality_score"`
	MarketCapClass string                 `json:"market_cap_class"`
}

// SentimentResponse wraps a symbol's aggregated news sentiment.
type SentimentResponse struct {
	RequestID string            `json:"request_id"`
	Sentiment sentiment.Summary `json:"sentiment"`
}

// UniverseResponse lists the configured scan universe.
type UniverseResponse struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
	Count   int      `json:"count"`
}
