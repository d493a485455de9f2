package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the facility pipeline and alerting.
type Metrics struct {
	// Upstream requests. labels: source={opendata,places,geocode,prediction,details,search,push}, outcome={success,error,empty}
	SourceRequests *prometheus.CounterVec
	SourceDuration *prometheus.HistogramVec // labels: source

	FacilitiesMerged  prometheus.Histogram
	DuplicatesDropped prometheus.Counter
	StaleDiscarded    prometheus.Counter

	DetailCache *prometheus.CounterVec // labels: result={hit,miss}

	AlertsEmitted        *prometheus.CounterVec // labels: hazard, tier
	NotificationFailures *prometheus.CounterVec // labels: sink={native,push,log}

	ActiveSessions prometheus.Gauge
	MonitorChecks  *prometheus.CounterVec // labels: outcome={alerted,quiet,cooldown,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.SourceRequests,
		m.SourceDuration,
		m.FacilitiesMerged,
		m.DuplicatesDropped,
		m.StaleDiscarded,
		m.DetailCache,
		m.AlertsEmitted,
		m.NotificationFailures,
		m.ActiveSessions,
		m.MonitorChecks,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "earthpulse",
			Name:      "source_requests_total",
			Help:      "Upstream requests by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "earthpulse",
			Name:      "source_request_duration_seconds",
			Help:      "Upstream request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		FacilitiesMerged: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "earthpulse",
			Name:      "facilities_merged",
			Help:      "Number of NGO entries after merging both sources.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "earthpulse",
			Name:      "facility_duplicates_dropped_total",
			Help:      "Open-data NGO entries discarded as duplicates of a places entry.",
		}),
		StaleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "earthpulse",
			Name:      "facility_stale_responses_total",
			Help:      "Facility cycles discarded because the selected coordinate changed.",
		}),
		DetailCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "earthpulse",
			Name:      "detail_cache_total",
			Help:      "Detail cache lookups by result.",
		}, []string{"result"}),
		AlertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "earthpulse",
			Name:      "alerts_emitted_total",
			Help:      "Risk alerts emitted by hazard and tier.",
		}, []string{"hazard", "tier"}),
		NotificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "earthpulse",
			Name:      "notification_failures_total",
			Help:      "Alert side effects that failed, by sink.",
		}, []string{"sink"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "earthpulse",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
		MonitorChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "earthpulse",
			Name:      "monitor_checks_total",
			Help:      "Scheduled per-city risk checks by outcome.",
		}, []string{"outcome"}),
	}
}
