package posting

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Metrics exposes Prometheus collectors for engine units.
type Metrics struct {
	units    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the posting collectors. A nil registerer falls back to
// the default Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "books_posting_units_total",
		Help: "Engine units partitioned by operation and outcome kind.",
	}, []string{"op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "books_posting_unit_duration_seconds",
		Help:    "Duration of engine units per operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	registerer.MustRegister(units, duration)
	return &Metrics{units: units, duration: duration}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.units.WithLabelValues(op, shared.Kind(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
