package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the payment ledger and FX collectors.
type Metrics struct {
	PaymentTransitionsTotal *prometheus.CounterVec
	PaymentErrorsTotal      *prometheus.CounterVec
	PaymentBaseAmountTotal  *prometheus.CounterVec
	FXFetchesTotal          *prometheus.CounterVec
	FXFetchDuration         prometheus.Histogram
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PaymentTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_transitions_total",
				Help: "Payment state changes by audit action",
			},
			[]string{"action"},
		),
		PaymentErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_errors_total",
				Help: "Rejected payment operations by operation and error kind",
			},
			[]string{"operation", "kind"},
		),
		PaymentBaseAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_base_amount_total",
				Help: "Sum of base currency amounts by audit action",
			},
			[]string{"action"},
		),
		FXFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_rate_fetches_total",
				Help: "Upstream rate table fetches by result",
			},
			[]string{"result"},
		),
		FXFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fx_rate_fetch_duration_seconds",
				Help:    "Upstream rate table fetch latency",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordTransition counts a successful state change. Safe on a nil receiver.
func (m *Metrics) RecordTransition(action string, baseAmount float64) {
	if m == nil {
		return
	}
	m.PaymentTransitionsTotal.WithLabelValues(action).Inc()
	if baseAmount > 0 {
		m.PaymentBaseAmountTotal.WithLabelValues(action).Add(baseAmount)
	}
}

// RecordError counts a rejected operation. Safe on a nil receiver.
func (m *Metrics) RecordError(operation, kind string) {
	if m == nil {
		return
	}
	m.PaymentErrorsTotal.WithLabelValues(operation, kind).Inc()
}

// RecordFetch records one upstream fetch. Safe on a nil receiver.
func (m *Metrics) RecordFetch(started time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.FXFetchesTotal.WithLabelValues(result).Inc()
	m.FXFetchDuration.Observe(time.Since(started).Seconds())
}
