package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for pixelgate lifecycle and
// resolution activity.
type Metrics struct {
	config MetricsConfig

	// Lifecycle metrics
	componentPhases   *prometheus.CounterVec
	componentDuration *prometheus.HistogramVec

	// Resolution metrics
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	resolutionWinners  *prometheus.CounterVec
	attemptedSources   *prometheus.HistogramVec
	eligibleSources    prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		componentPhases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "component_phase_total",
				Help:      "Total component lifecycle phase outcomes",
			},
			[]string{"component", "phase", "status"},
		),
		componentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "component_phase_duration_seconds",
				Help:      "Duration of component lifecycle hooks",
				Buckets:   buckets,
			},
			[]string{"component", "phase"},
		),
		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total resolutions by path and outcome",
			},
			[]string{"path", "outcome"},
		),
		resolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "End-to-end resolution latency",
				Buckets:   buckets,
			},
			[]string{"path"},
		),
		resolutionWinners: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_winners_total",
				Help:      "Resolutions served, by winning source",
			},
			[]string{"source"},
		),
		attemptedSources: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_attempted_sources",
				Help:      "Number of sources attempted per resolution",
				Buckets:   []float64{0, 1, 2, 3, 4, 5},
			},
			[]string{"path"},
		),
		eligibleSources: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "eligible_sources",
				Help:      "Number of sources currently eligible for resolution",
			},
		),
	}

	registry.MustRegister(
		m.componentPhases,
		m.componentDuration,
		m.resolutionsTotal,
		m.resolutionDuration,
		m.resolutionWinners,
		m.attemptedSources,
		m.eligibleSources,
	)

	return m, nil
}

// ObserveComponentPhase records one component lifecycle hook outcome.
func (m *Metrics) ObserveComponentPhase(component, phase, status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.componentPhases.WithLabelValues(component, phase, status).Inc()
	m.componentDuration.WithLabelValues(component, phase).Observe(duration.Seconds())
}

// ObserveResolution records one resolver call.
func (m *Metrics) ObserveResolution(path, outcome, source string, attempted int, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(path, outcome).Inc()
	m.resolutionDuration.WithLabelValues(path).Observe(duration.Seconds())
	m.attemptedSources.WithLabelValues(path).Observe(float64(attempted))
	if source != "" {
		m.resolutionWinners.WithLabelValues(source).Inc()
	}
}

// SetEligibleSources records how many sources currently pass the
// eligibility filter.
func (m *Metrics) SetEligibleSources(n int) {
	if m.registry == nil {
		return
	}
	m.eligibleSources.Set(float64(n))
}

// Handler returns the HTTP handler serving the metrics registry, or nil
// when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and custom
// collectors. Nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
