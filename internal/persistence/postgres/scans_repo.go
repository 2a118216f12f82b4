// Package postgres implements the scan history repository on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/basehunter/basehunter/internal/persistence"
	"github.com/basehunter/basehunter/internal/scan/pipeline"
)

// Schema creates the scan history tables. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS scans (
	id                BIGSERIAL PRIMARY KEY,
	started_at        TIMESTAMPTZ NOT NULL,
	duration_ms       BIGINT NOT NULL,
	scan_trigger      TEXT NOT NULL,
	universe          TEXT NOT NULL,
	symbols_requested INTEGER NOT NULL,
	symbols_evaluated INTEGER NOT NULL,
	setups_found      INTEGER NOT NULL,
	breakouts_found   INTEGER NOT NULL,
	fetch_errors      INTEGER NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scan_results (
	id              BIGSERIAL PRIMARY KEY,
	scan_id         BIGINT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	symbol          TEXT NOT NULL,
	combined_score  DOUBLE PRECISION NOT NULL,
	recommendation  TEXT NOT NULL,
	reason          TEXT,
	setup           JSONB,
	breakout        JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scans_started_at ON scans (started_at DESC);
CREATE INDEX IF NOT EXISTS idx_scan_results_symbol ON scan_results (symbol, created_at DESC);
`

type scanRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewScanRepo creates a PostgreSQL-backed scan repository.
func NewScanRepo(db *sqlx.DB, timeout time.Duration) persistence.ScanRepo {
	return &scanRepo{db: db, timeout: timeout}
}

// EnsureSchema applies the schema.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply scan schema: %w", err)
	}
	return nil
}

// SaveScan persists the run and its notable results in one transaction.
func (r *scanRepo) SaveScan(ctx context.Context, record persistence.ScanRecord, results []pipeline.Result) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin scan save: %w", err)
	}
	defer tx.Rollback()

	var scanID int64
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO scans (started_at, duration_ms, scan_trigger, universe,
			symbols_requested, symbols_evaluated, setups_found, breakouts_found, fetch_errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		record.StartedAt, record.DurationMS, record.Trigger, record.Universe,
		record.SymbolsRequested, record.SymbolsEvaluated,
		record.SetupsFound, record.BreakoutsFound, record.FetchErrors).
		Scan(&scanID)
	if err != nil {
		return 0, fmt.Errorf("insert scan: %w", err)
	}

	for _, result := range results {
		if result.Setup == nil && result.Breakout == nil {
			continue
		}

		setupJSON, breakoutJSON, err := marshalResult(result)
		if err != nil {
			return 0, err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_results (scan_id, symbol, combined_score, recommendation, reason, setup, breakout)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			scanID, result.Symbol, result.CombinedScore, result.Recommendation,
			result.Reason, setupJSON, breakoutJSON)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				return 0, fmt.Errorf("insert result %s (%s): %w", result.Symbol, pqErr.Code.Name(), err)
			}
			return 0, fmt.Errorf("insert result %s: %w", result.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit scan save: %w", err)
	}
	return scanID, nil
}

// LatestScan returns the newest run with its stored results.
func (r *scanRepo) LatestScan(ctx context.Context) (*persistence.ScanRecord, []persistence.StoredResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var record persistence.ScanRecord
	err := r.db.GetContext(ctx, &record, `
		SELECT id, started_at, duration_ms, scan_trigger, universe,
			symbols_requested, symbols_evaluated, setups_found, breakouts_found, fetch_errors, created_at
		FROM scans
		ORDER BY started_at DESC
		LIMIT 1`)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("select latest scan: %w", err)
	}
	record.Duration = time.Duration(record.DurationMS) * time.Millisecond

	var results []persistence.StoredResult
	err = r.db.SelectContext(ctx, &results, `
		SELECT id, scan_id, symbol, combined_score, recommendation, reason, setup, breakout, created_at
		FROM scan_results
		WHERE scan_id = $1
		ORDER BY combined_score DESC`, record.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("select scan results: %w", err)
	}

	return &record, results, nil
}

// SetupHistory returns the stored results for a symbol, newest first.
func (r *scanRepo) SetupHistory(ctx context.Context, symbol string, limit int) ([]persistence.StoredResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	var results []persistence.StoredResult
	err := r.db.SelectContext(ctx, &results, `
		SELECT id, scan_id, symbol, combined_score, recommendation, reason, setup, breakout, created_at
		FROM scan_results
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("select setup history for %s: %w", symbol, err)
	}
	return results, nil
}

func marshalResult(result pipeline.Result) ([]byte, []byte, error) {
	var setupJSON, breakoutJSON []byte
	var err error

	if result.Setup != nil {
		if setupJSON, err = json.Marshal(result.Setup); err != nil {
			return nil, nil, fmt.Errorf("marshal setup for %s: %w", result.Symbol, err)
		}
	}
	if result.Breakout != nil {
		if breakoutJSON, err = json.Marshal(result.Breakout); err != nil {
			return nil, nil, fmt.Errorf("marshal breakout for %s: %w", result.Symbol, err)
		}
	}
	return setupJSON, breakoutJSON, nil
}
