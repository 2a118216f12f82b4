package http

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/basehunter/basehunter/internal/domain/fundamentals"
	"github.com/basehunter/basehunter/internal/domain/sentiment"
	"github.com/basehunter/basehunter/internal/scan/pipeline"
	"github.com/basehunter/basehunter/internal/universe"
)

// Handlers wires the scan pipeline and universe into HTTP endpoints.
type Handlers struct {
	scanner      *pipeline.Scanner
	universe     *universe.Manager
	fundamentals pipeline.FundamentalsProvider
	sentiment    pipeline.SentimentProvider
	metrics      *MetricsRegistry
	version      string
	started      time.Time
}

// NewHandlers creates the handler set. The fundamentals and sentiment
// providers may be nil; their endpoints then answer 503.
func NewHandlers(scanner *pipeline.Scanner, uni *universe.Manager, fnd pipeline.FundamentalsProvider, snt pipeline.SentimentProvider, metrics *MetricsRegistry, version string) *Handlers {
	return &Handlers{
		scanner:      scanner,
		universe:     uni,
		fundamentals: fnd,
		sentiment:    snt,
		metrics:      metrics,
		version:      version,
		started:      time.Now(),
	}
}

// Health reports process status and runtime diagnostics.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		System: SystemHealth{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			MemAllocMB:    mem.Alloc / 1024 / 1024,
		},
	})
}

// ScanVCP runs a universe scan and returns only symbols with setups.
func (h *Handlers) ScanVCP(w http.ResponseWriter, r *http.Request) {
	h.runScan(w, r, "vcp", func(results []pipeline.Result) []pipeline.Result {
		kept := results[:0]
		for _, result := range results {
			if result.Setup != nil {
				kept = append(kept, result)
			}
		}
		return kept
	})
}

// ScanBreakouts runs a universe scan and returns confirmed breakouts,
// ordered by confirmation score.
func (h *Handlers) ScanBreakouts(w http.ResponseWriter, r *http.Request) {
	h.runScan(w, r, "breakouts", pipeline.Breakouts)
}

// ScanFull runs a universe scan and returns every evaluated symbol.
func (h *Handlers) ScanFull(w http.ResponseWriter, r *http.Request) {
	h.runScan(w, r, "full", func(results []pipeline.Result) []pipeline.Result {
		return results
	})
}

func (h *Handlers) runScan(w http.ResponseWriter, r *http.Request, trigger string, filter func([]pipeline.Result) []pipeline.Result) {
	start := time.Now()
	h.metrics.ActiveScans.Inc()
	defer h.metrics.ActiveScans.Dec()

	results, summary, err := h.scanner.Scan(r.Context(), h.universe.Symbols())
	h.metrics.RecordScan(trigger, time.Since(start), summary.SetupsFound, summary.BreakoutsFound, err)
	if err != nil {
		h.writeError(w, r, http.StatusBadGateway, "scan_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, ScanResponse{
		RequestID: requestID(r),
		Universe:  h.universe.Name(),
		Summary:   summary,
		Results:   filter(results),
	})
}

// StockVCP evaluates one symbol's contraction setup on demand.
func (h *Handlers) StockVCP(w http.ResponseWriter, r *http.Request) {
	h.evaluateSymbol(w, r, false)
}

// StockBreakout evaluates one symbol and reports its breakout status.
func (h *Handlers) StockBreakout(w http.ResponseWriter, r *http.Request) {
	h.evaluateSymbol(w, r, true)
}

func (h *Handlers) evaluateSymbol(w http.ResponseWriter, r *http.Request, wantBreakout bool) {
	symbol := mux.Vars(r)["symbol"]
	if !h.universe.Contains(symbol) {
		h.writeError(w, r, http.StatusNotFound, "unknown_symbol",
			"symbol is not part of the configured universe")
		return
	}

	result, err := h.scanner.ScanSymbol(r.Context(), symbol, nil)
	if err != nil {
		h.writeError(w, r, http.StatusBadGateway, "evaluation_failed", err.Error())
		return
	}

	if wantBreakout && result.Breakout == nil {
		result.Reason = "no_breakout: close has not cleared the pivot on confirming volume"
	}

	h.writeJSON(w, http.StatusOK, SymbolResponse{
		RequestID: requestID(r),
		Result:    result,
	})
}

// StockFundamentals returns the quality snapshot and score for one symbol.
func (h *Handlers) StockFundamentals(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if !h.universe.Contains(symbol) {
		h.writeError(w, r, http.StatusNotFound, "unknown_symbol",
			"symbol is not part of the configured universe")
		return
	}
	if h.fundamentals == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "fundamentals_disabled",
			"the fundamentals provider is not configured")
		return
	}

	snap, err := h.fundamentals.Fundamentals(r.Context(), symbol)
	if err != nil {
		h.writeError(w, r, http.StatusBadGateway, "fundamentals_failed", err.Error())
		return
	}
	if snap == nil {
		h.writeError(w, r, http.StatusNotFound, "fundamentals_unavailable",
			"no fundamentals data for this symbol")
		return
	}

	h.writeJSON(w, http.StatusOK, FundamentalsResponse{
		RequestID:      requestID(r),
		Symbol:         symbol,
		Fundamentals:   snap,
		QualityScore:   fundamentals.QualityScore(*snap),
		MarketCapClass: fundamentals.ClassifyMarketCap(snap.MarketCap),
	})
}

// StockSentiment aggregates the symbol's scored headlines on demand.
func (h *Handlers) StockSentiment(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if !h.universe.Contains(symbol) {
		h.writeError(w, r, http.StatusNotFound, "unknown_symbol",
			"symbol is not part of the configured universe")
		return
	}
	if h.sentiment == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "sentiment_disabled",
			"the news provider is not configured")
		return
	}

	headlines, err := h.sentiment.Headlines(r.Context(), symbol)
	if err != nil {
		h.writeError(w, r, http.StatusBadGateway, "sentiment_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, SentimentResponse{
		RequestID: requestID(r),
		Sentiment: sentiment.Aggregate(symbol, headlines),
	})
}

// Universe lists the configured symbols.
func (h *Handlers) Universe(w http.ResponseWriter, r *http.Request) {
	symbols := h.universe.Symbols()
	h.writeJSON(w, http.StatusOK, UniverseResponse{
		Name:    h.universe.Name(),
		Symbols: symbols,
		Count:   len(symbols),
	})
}

// NotFound handles unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}
