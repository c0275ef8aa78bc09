package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// poolMetrics is the lazily-initialised Prometheus registry for pool
// activity, mirroring the lazy singleton the platform's module metrics use
// for JSON-RPC request counters.
type poolMetrics struct {
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	cash       prometheus.Gauge
	liability  prometheus.Gauge
}

var (
	poolMetricsOnce sync.Once
	poolRegistry    *poolMetrics
)

// PoolMetrics returns the shared metrics registry, constructing it on first
// use.
func PoolMetrics() *poolMetrics {
	poolMetricsOnce.Do(func() {
		poolRegistry = &poolMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondmm",
				Subsystem: "pool",
				Name:      "operations_total",
				Help:      "Total pool operations segmented by kind and outcome.",
			}, []string{"operation", "outcome"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondmm",
				Subsystem: "pool",
				Name:      "failures_total",
				Help:      "Total pool operation failures segmented by kind and sentinel error.",
			}, []string{"operation", "error"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "bondmm",
				Subsystem: "pool",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for pool operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			cash: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bondmm",
				Subsystem: "pool",
				Name:      "cash",
				Help:      "Current pool cash reserve, in whole units.",
			}),
			liability: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bondmm",
				Subsystem: "pool",
				Name:      "net_liabilities",
				Help:      "Current accrued net liability owed to lenders, in whole units.",
			}),
		}
	})
	return poolRegistry
}

// Collectors returns every metric for registration against a
// prometheus.Registerer.
func (m *poolMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operations, m.failures, m.latency, m.cash, m.liability}
}

// ObserveOperation records a completed operation's outcome and latency.
func (m *poolMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(seconds)
}

// ObserveFailure records an operation failure keyed by its sentinel error.
func (m *poolMetrics) ObserveFailure(operation, errName string) {
	m.failures.WithLabelValues(operation, errName).Inc()
}

// SetReserves updates the cash and liability gauges from the latest query.
func (m *poolMetrics) SetReserves(cash, liabilities float64) {
	m.cash.Set(cash)
	m.liability.Set(liabilities)
}
