package protocol

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	v1 "playgate/contracts/play/v1"
)

// Metrics holds the protocol's Prometheus collectors.
type Metrics struct {
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	swept    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests use for isolation.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playgate",
			Subsystem: "protocol",
			Name:      "results_total",
			Help:      "Protocol operation results by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "playgate",
			Subsystem: "protocol",
			Name:      "duration_seconds",
			Help:      "Protocol operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "playgate",
			Name:      "sessions_swept_total",
			Help:      "Session entries deleted by the sweeper.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.results, m.duration, m.swept} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op Op, result string, started time.Time) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(string(op), result).Inc()
	m.duration.WithLabelValues(string(op)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeResult(op Op, r v1.Result, started time.Time) {
	m.observe(op, string(r), started)
}

// ObserveSwept counts entries deleted by a sweep. It matches session.WithSweepObserver.
func (m *Metrics) ObserveSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}
