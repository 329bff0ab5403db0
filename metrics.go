package fastlane

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// LatencyBuckets are the io_latency_seconds histogram buckets, covering 50us
// to 5s with roughly logarithmic spacing.
var LatencyBuckets = []float64{
	50e-6, 100e-6, 200e-6, 500e-6,
	1e-3, 2e-3, 5e-3, 1e-2, 2e-2, 5e-2,
	0.1, 0.25, 0.5, 1.0, 2.0, 5.0,
}

// Metrics is the process-wide metrics set for the host agent: operation
// latency, errors by (op, reason), ring occupancy, and fabric-specific
// counters. Each instance owns its own registry and is passed explicitly to
// the components that report into it, so unit tests can use isolated
// instances. Metrics is a one-way reporting surface; nothing in the hand-off
// path reads it back.
type Metrics struct {
	registry *prometheus.Registry

	IOLatencySeconds  prometheus.Histogram
	IOErrorsTotal     *prometheus.CounterVec
	QueueDepth        prometheus.Gauge
	NVMeTimeoutsTotal prometheus.Counter
	CQOverflowTotal   prometheus.Counter
}

// NewMetrics creates and registers the metrics required by the agent.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		IOLatencySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "io_latency_seconds",
			Help:    "Latency distribution of IO operations in seconds",
			Buckets: LatencyBuckets,
		}),
		IOErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "io_errors_total",
			Help: "Count of IO errors grouped by operation and reason",
		}, []string{"op", "reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nvme_queue_depth",
			Help: "Current NVMe queue depth observed by the agent",
		}),
		NVMeTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nvme_timeouts_total",
			Help: "Total NVMe command timeouts observed",
		}),
		CQOverflowTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fabric_cq_overflow_total",
			Help: "Total fabric completion queue overflow events",
		}),
	}

	collectors := []prometheus.Collector{
		m.IOLatencySeconds,
		m.IOErrorsTotal,
		m.QueueDepth,
		m.NVMeTimeoutsTotal,
		m.CQOverflowTotal,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return m, nil
}

// MustNewMetrics is NewMetrics for process startup paths where a registration
// failure is unrecoverable.
func MustNewMetrics() *Metrics {
	m, err := NewMetrics()
	if err != nil {
		panic(err)
	}
	return m
}

// ObserveIOLatency records the latency of one completed operation in seconds.
func (m *Metrics) ObserveIOLatency(seconds float64) {
	m.IOLatencySeconds.Observe(seconds)
}

// IncIOError increments the error counter for the given operation and reason.
func (m *Metrics) IncIOError(op IOOp, reason string) {
	m.IOErrorsTotal.WithLabelValues(op.Label(), reason).Inc()
}

// SetQueueDepth updates the queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// IncNVMeTimeout increments the NVMe command timeout counter.
func (m *Metrics) IncNVMeTimeout() {
	m.NVMeTimeoutsTotal.Inc()
}

// IncCQOverflow increments the fabric CQ overflow counter.
func (m *Metrics) IncCQOverflow() {
	m.CQOverflowTotal.Inc()
}

// Registry provides access to the underlying registry for HTTP exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Gather renders the registered metrics in the Prometheus text format.
func (m *Metrics) Gather() (string, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", fmt.Errorf("encode metrics: %w", err)
		}
	}
	return buf.String(), nil
}
