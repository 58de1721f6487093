package ledger

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"swapv3/internal/swaperr"
)

// Metrics counts ledger operations by kind and outcome.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Sequence   prometheus.Gauge
}

// NewMetrics builds the ledger collectors and registers them with reg when
// it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapv3",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and result.",
		}, []string{"kind", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swapv3",
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing an operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
		Sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swapv3",
			Name:      "last_sequence",
			Help:      "Sequence number of the last committed operation.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Duration, m.Sequence)
	}
	return m
}

func (m *Metrics) observe(kind string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(kind, resultLabel(err)).Inc()
	m.Duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, swaperr.ErrInvalidInstruction):
		return "invalid_instruction"
	case errors.Is(err, swaperr.ErrOverflow):
		return "overflow"
	case errors.Is(err, swaperr.ErrInvalidTick):
		return "invalid_tick"
	case errors.Is(err, swaperr.ErrInvalidPriceLimit):
		return "invalid_price_limit"
	case errors.Is(err, ErrPoolExists), errors.Is(err, ErrPoolNotFound):
		return "rejected"
	default:
		return "storage_error"
	}
}
