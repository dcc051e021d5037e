package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "simhost"

// PrometheusKernelMetrics backs KernelMetrics with real prometheus
// collectors, registered against reg.
type PrometheusKernelMetrics struct {
	frameDuration      prometheus.Histogram
	moduleTickDuration *prometheus.HistogramVec
	moduleTickFailures *prometheus.CounterVec
	moduleSkipped      *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
}

func NewPrometheusKernelMetrics(reg prometheus.Registerer) *PrometheusKernelMetrics {
	m := &PrometheusKernelMetrics{
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "frame_duration_seconds",
			Help:      "Wall-clock duration of one kernel Update call.",
			Buckets:   prometheus.DefBuckets,
		}),
		moduleTickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "module_tick_duration_seconds",
			Help:      "Duration of one module's Tick call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"module"}),
		moduleTickFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "module_tick_failures_total",
			Help:      "Count of module Tick calls that panicked or returned an error.",
		}, []string{"module"}),
		moduleSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "module_skipped_total",
			Help:      "Count of frames a module was skipped (off-cadence or breaker open).",
		}, []string{"module"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "breaker_state",
			Help:      "Per-module circuit breaker state: the series labelled with a reported state is set to 1; series for earlier states are not reset.",
		}, []string{"module", "state"}),
	}

	reg.MustRegister(m.frameDuration, m.moduleTickDuration, m.moduleTickFailures, m.moduleSkipped, m.breakerState)
	return m
}

func (m *PrometheusKernelMetrics) FrameDuration(d time.Duration) {
	m.frameDuration.Observe(d.Seconds())
}

func (m *PrometheusKernelMetrics) ModuleTickDuration(moduleName string, d time.Duration) {
	m.moduleTickDuration.WithLabelValues(moduleName).Observe(d.Seconds())
}

func (m *PrometheusKernelMetrics) ModuleTickFailure(moduleName string) {
	m.moduleTickFailures.WithLabelValues(moduleName).Inc()
}

func (m *PrometheusKernelMetrics) ModuleSkipped(moduleName string) {
	m.moduleSkipped.WithLabelValues(moduleName).Inc()
}

func (m *PrometheusKernelMetrics) BreakerStateChanged(moduleName string, state string) {
	m.breakerState.WithLabelValues(moduleName, state).Set(1)
}
