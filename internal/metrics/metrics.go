package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for acquisition and snapshots.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SourceRequests  *prometheus.CounterVec // labels: source, result
	Acquisitions    *prometheus.CounterVec // labels: origin
	SnapshotLookups *prometheus.CounterVec // labels: result
	ComputeDuration prometheus.Histogram
	HistoryBars     prometheus.Gauge
}

// New creates and registers every instrument on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_source_requests_total",
			Help: "Daily bar requests per source by result (ok, no_data, rate_limited, error)",
		}, []string{"source", "result"}),
		Acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_acquisitions_total",
			Help: "Daily bar acquisitions by origin (store, fetched, not_found)",
		}, []string{"origin"}),
		SnapshotLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_snapshot_lookups_total",
			Help: "Snapshot requests by cache result (hit, miss, stale)",
		}, []string{"result"}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gauge_snapshot_compute_seconds",
			Help:    "Time spent computing a snapshot",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		HistoryBars: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gauge_history_daily_bars",
			Help: "Daily bars available in the last computed history window",
		}),
	}
	reg.MustRegister(
		m.SourceRequests, m.Acquisitions, m.SnapshotLookups, m.ComputeDuration, m.HistoryBars,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SourceRequest(source, result string) {
	if m != nil {
		m.SourceRequests.WithLabelValues(source, result).Inc()
	}
}

func (m *Metrics) Acquired(origin string) {
	if m != nil {
		m.Acquisitions.WithLabelValues(origin).Inc()
	}
}

func (m *Metrics) SnapshotLookup(result string) {
	if m != nil {
		m.SnapshotLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveCompute(start time.Time) {
	if m != nil {
		m.ComputeDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) SetHistoryBars(n int) {
	if m != nil {
		m.HistoryBars.Set(float64(n))
	}
}
