// Package metrics exposes Prometheus instrumentation for the build pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline metric instruments.
type Metrics struct {
	buildsStarted   prometheus.Counter
	buildsCompleted prometheus.Counter
	buildsFailed    *prometheus.CounterVec
	activeBuilds    prometheus.Gauge
	phaseDuration   *prometheus.HistogramVec
}

// New registers pipeline metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		buildsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "buildd_builds_started_total",
			Help: "Total builds accepted by StartBuild.",
		}),
		buildsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "buildd_builds_completed_total",
			Help: "Total builds that reached the complete state.",
		}),
		buildsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "buildd_builds_failed_total",
			Help: "Total builds that errored, labeled by the failing phase.",
		}, []string{"phase"}),
		activeBuilds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "buildd_builds_active",
			Help: "Builds currently running their pipeline.",
		}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "buildd_phase_duration_seconds",
			Help:    "Wall time per pipeline phase.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2.5, 10),
		}, []string{"phase"}),
	}
}

// BuildStarted records a build entering the pipeline.
func (m *Metrics) BuildStarted() {
	if m == nil {
		return
	}
	m.buildsStarted.Inc()
	m.activeBuilds.Inc()
}

// BuildCompleted records a successful terminal state.
func (m *Metrics) BuildCompleted() {
	if m == nil {
		return
	}
	m.buildsCompleted.Inc()
	m.activeBuilds.Dec()
}

// BuildFailed records a failed terminal state.
func (m *Metrics) BuildFailed(phase string) {
	if m == nil {
		return
	}
	m.buildsFailed.WithLabelValues(phase).Inc()
	m.activeBuilds.Dec()
}

// PhaseObserved records how long one phase ran.
func (m *Metrics) PhaseObserved(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
