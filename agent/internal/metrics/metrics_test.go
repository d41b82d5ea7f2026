package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Tick()
	m.Tick()
	m.Event("comm_loss")
	m.EvaluationError()
	m.Delivery("slack", nil)
	m.Delivery("slack", errors.New("503"))
	m.Delivery("slack", errors.New("timeout"))
	m.ChannelAvailable(true)
	m.SourceError()

	if got := testutil.ToFloat64(m.TicksTotal); got != 2 {
		t.Errorf("ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("comm_loss")); got != 1 {
		t.Errorf("events[comm_loss] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EvaluationErrors); got != 1 {
		t.Errorf("evaluation errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("slack", ResultOK)); got != 1 {
		t.Errorf("deliveries[ok] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("slack", ResultFailed)); got != 2 {
		t.Errorf("deliveries[failed] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.NotifierAvailable); got != 1 {
		t.Errorf("channel available = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SourceErrors); got != 1 {
		t.Errorf("source errors = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Tick()
	m.Event("power_drop")
	m.EvaluationError()
	m.Delivery("none", nil)
	m.ChannelAvailable(false)
	m.SourceError()
}
