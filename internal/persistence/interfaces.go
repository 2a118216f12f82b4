// Package persistence defines the storage contracts for scan history.
package persistence

import (
	"context"
	"time"

	"github.com/basehunter/basehunter/internal/scan/pipeline"
)

// ScanRecord is one persisted scan run.
type ScanRecord struct {
	ID               int64         `json:"id" db:"id"`
	StartedAt        time.Time     `json:"started_at" db:"started_at"`
	Duration         time.Duration `json:"duration" db:"-"`
	DurationMS       int64         `json:"-" db:"duration_ms"`
	Trigger          string        `json:"trigger" db:"scan_trigger"`
	Universe         string        `json:"universe" db:"universe"`
	SymbolsRequested int           `json:"symbols_requested" db:"symbols_requested"`
	SymbolsEvaluated int           `json:"symbols_evaluated" db:"symbols_evaluated"`
	SetupsFound      int           `json:"setups_found" db:"setups_found"`
	BreakoutsFound   int           `json:"breakouts_found" db:"breakouts_found"`
	FetchErrors      int           `json:"fetch_errors" db:"fetch_errors"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// StoredResult is one persisted per-symbol outcome. Setup and Breakout
// are kept as JSON documents so the schema survives scoring changes.
type StoredResult struct {
	ID             int64     `json:"id" db:"id"`
	ScanID         int64     `json:"scan_id" db:"scan_id"`
	Symbol         string    `json:"symbol" db:"symbol"`
	CombinedScore  float64   `json:"combined_score" db:"combined_score"`
	Recommendation string    `json:"recommendation" db:"recommendation"`
	Reason         string    `json:"reason,omitempty" db:"reason"`
	Setup          []byte    `json:"setup,omitempty" db:"setup"`
	Breakout       []byte    `json:"breakout,omitempty" db:"breakout"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// NewScanRecord builds a record from a scan summary.
func NewScanRecord(trigger, universeName string, summary pipeline.Summary) ScanRecord {
	return ScanRecord{
		StartedAt:        summary.StartedAt,
		Duration:         summary.Duration,
		DurationMS:       summary.Duration.Milliseconds(),
		Trigger:          trigger,
		Universe:         universeName,
		SymbolsRequested: summary.SymbolsRequested,
		SymbolsEvaluated: summary.SymbolsEvaluated,
		SetupsFound:      summary.SetupsFound,
		BreakoutsFound:   summary.BreakoutsFound,
		FetchErrors:      summary.FetchErrors,
	}
}

// ScanRepo stores and retrieves scan runs.
type ScanRepo interface {
	// SaveScan persists the run and its notable results (symbols that
	// produced a setup or a breakout) atomically, returning the scan ID.
	SaveScan(ctx context.Context, record ScanRecord, results []pipeline.Result) (int64, error)

	// LatestScan returns the most recent run and its stored results.
	LatestScan(ctx context.Context) (*ScanRecord, []StoredResult, error)

	// SetupHistory returns the stored results for one symbol, newest
	// first, capped at limit.
	SetupHistory(ctx context.Context, symbol string, limit int) ([]StoredResult, error)
}
