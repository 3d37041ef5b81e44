package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordTransition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordTransition("created", 110)
	m.RecordTransition("created", 0)

	if got := testutil.ToFloat64(m.PaymentTransitionsTotal.WithLabelValues("created")); got != 2 {
		t.Errorf("expected 2 transitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.PaymentBaseAmountTotal.WithLabelValues("created")); got != 110 {
		t.Errorf("expected base amount 110, got %v", got)
	}
}

func TestMetrics_RecordFetch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordFetch(time.Now(), nil)
	m.RecordFetch(time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(m.FXFetchesTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 successful fetch, got %v", got)
	}
	if got := testutil.ToFloat64(m.FXFetchesTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed fetch, got %v", got)
	}
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordTransition("created", 1)
	m.RecordError("create", "validation")
	m.RecordFetch(time.Now(), nil)
}
