// Package metrics exposes Prometheus instruments for analysis runs and ingestion
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stock_analysis"

// Metrics holds the registry and every instrument
type Metrics struct {
	registry *prometheus.Registry

	AnalysisRuns     *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	LastRunSymbols   prometheus.Gauge
	IngestedRecords  prometheus.Counter
	SkippedSources   prometheus.Counter
	PriceBars        *prometheus.CounterVec
	CacheRequests    *prometheus.CounterVec
}

// New creates instruments on a private registry together with the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AnalysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"status"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of an analysis run including loading.",
			Buckets:   prometheus.DefBuckets,
		}),
		LastRunSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_symbols",
			Help:      "Symbols covered by the most recent run.",
		}),
		IngestedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_records_total",
			Help:      "Price records accepted by the normalizer.",
		}),
		SkippedSources: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_sources_total",
			Help:      "Price sources rejected by the normalizer.",
		}),
		PriceBars: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_bars_total",
			Help:      "Price bar events consumed from Kafka by outcome.",
		}, []string{"status"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Report cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AnalysisRuns,
		m.AnalysisDuration,
		m.LastRunSymbols,
		m.IngestedRecords,
		m.SkippedSources,
		m.PriceBars,
		m.CacheRequests,
	)
	return m
}

// ObserveRun records the outcome of one run
func (m *Metrics) ObserveRun(status string, started time.Time, symbols int) {
	m.AnalysisRuns.WithLabelValues(status).Inc()
	m.AnalysisDuration.Observe(time.Since(started).Seconds())
	if status == "ok" {
		m.LastRunSymbols.Set(float64(symbols))
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
