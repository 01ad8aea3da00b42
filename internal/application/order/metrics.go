package order

import "github.com/prometheus/client_golang/prometheus"

// Metrics carries the coordinator's RED instruments. Vectors are constructed
// once at startup and injected; a nil Metrics disables recording.
type Metrics struct {
	Requests *prometheus.CounterVec   // operation, outcome
	Duration *prometheus.HistogramVec // operation
	Swept    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_operations_total",
				Help: "Total number of order coordinator operations.",
			},
			[]string{"operation", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "order_operation_duration_seconds",
				Help:    "Duration of order coordinator operations in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Swept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "order_sweep_canceled_total",
				Help: "Count of pending orders canceled by the expiration sweep.",
			},
		),
	}
	reg.MustRegister(m.Requests, m.Duration, m.Swept)
	return m
}

func (m *Metrics) observe(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(operation, outcome).Inc()
	m.Duration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) swept(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Swept.Add(float64(n))
}
