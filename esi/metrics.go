package esi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fastedge/esi/esiproc"
)

// PrometheusMetrics is an [esiproc.Metrics] implementation backed by
// github.com/prometheus/client_golang counters and a histogram, following the
// promauto.With(reg)-factory pattern.
type PrometheusMetrics struct {
	dispatched prometheus.Counter
	failed     prometheus.Counter
	latency    prometheus.Histogram
}

// NewPrometheusMetrics registers ESI fragment counters/histogram on reg and returns a collaborator
// ready to pass as Configuration's metrics sink. Passing nil registers against the default
// registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &PrometheusMetrics{
		dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "esi",
			Subsystem: "fragment",
			Name:      "dispatched_total",
			Help:      "Total number of fragment requests dispatched, including alt retries.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "esi",
			Subsystem: "fragment",
			Name:      "failed_total",
			Help:      "Total number of fragments that resolved to an unsuppressed failure.",
		}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "esi",
			Subsystem: "fragment",
			Name:      "resolve_duration_seconds",
			Help:      "Time between a fragment's dispatch and its successful resolution.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *PrometheusMetrics) FragmentDispatched() { m.dispatched.Inc() }
func (m *PrometheusMetrics) FragmentFailed()     { m.failed.Inc() }
func (m *PrometheusMetrics) FragmentLatency(d time.Duration) {
	m.latency.Observe(d.Seconds())
}

var _ esiproc.Metrics = (*PrometheusMetrics)(nil)
