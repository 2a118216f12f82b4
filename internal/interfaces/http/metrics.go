package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// MetricsRegistry holds the Prometheus metrics. Each registry owns a
// private prometheus.Registry so multiple servers in one process (or in
// tests) never collide on registration.
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Scan metrics
	ScanDuration   *prometheus.HistogramVec
	ScansTotal     *prometheus.CounterVec
	SetupsFound    prometheus.Counter
	BreakoutsFound prometheus.Counter
	ActiveScans    prometheus.Gauge

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec

	// Data layer metrics
	CacheHitRatio  prometheus.Gauge
	ProviderErrors *prometheus.CounterVec
}

// NewMetricsRegistry creates and registers all metrics.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "basehunter_scan_duration_seconds",
				Help:    "Duration of universe scans in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"trigger"},
		),

		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basehunter_scans_total",
				Help: "Total number of scans by trigger and result",
			},
			[]string{"trigger", "result"},
		),

		SetupsFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "basehunter_setups_found_total",
				Help: "Total number of contraction setups detected",
			},
		),

		BreakoutsFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "basehunter_breakouts_found_total",
				Help: "Total number of confirmed breakouts detected",
			},
		),

		ActiveScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basehunter_active_scans",
				Help: "Number of currently running scans",
			},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "basehunter_http_request_duration_seconds",
				Help:    "HTTP request duration by route and status",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"route", "status"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basehunter_cache_hit_ratio",
				Help: "Data cache hit ratio (0.0 to 1.0)",
			},
		),

		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basehunter_provider_errors_total",
				Help: "Total upstream provider errors by provider",
			},
			[]string{"provider"},
		),
	}

	m.registry.MustRegister(
		m.ScanDuration,
		m.ScansTotal,
		m.SetupsFound,
		m.BreakoutsFound,
		m.ActiveScans,
		m.RequestDuration,
		m.CacheHitRatio,
		m.ProviderErrors,
	)

	return m
}

// Handler serves the metrics in Prometheus exposition format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the raw metric families, used by tests and reports.
func (m *MetricsRegistry) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// RecordScan updates the scan counters after a run.
func (m *MetricsRegistry) RecordScan(trigger string, duration time.Duration, setups, breakouts int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.ScanDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	m.ScansTotal.WithLabelValues(trigger, result).Inc()
	m.SetupsFound.Add(float64(setups))
	m.BreakoutsFound.Add(float64(breakouts))

	log.Debug().
		Str("trigger", trigger).
		Str("result", result).
		Dur("duration", duration).
		Msg("scan recorded")
}
