// Package metrics holds the agent's own Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Delivery results used as the "result" label of DeliveriesTotal.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics bundles state monitor metrics.
// A nil *Metrics is valid; every method is then a no-op.
type Metrics struct {
	TicksTotal        prometheus.Counter
	EventsTotal       *prometheus.CounterVec
	EvaluationErrors  prometheus.Counter
	DeliveriesTotal   *prometheus.CounterVec
	NotifierAvailable prometheus.Gauge
	SourceErrors      prometheus.Counter
}

// New constructs the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chargewatch_monitor_ticks_total",
			Help: "Total pipeline ticks seen by the state monitor",
		}),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chargewatch_monitor_events_total",
				Help: "Triggered condition events by rule",
			},
			[]string{"rule"},
		),
		EvaluationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chargewatch_monitor_evaluation_errors_total",
			Help: "Ticks on which at least one rule failed to evaluate",
		}),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chargewatch_notify_deliveries_total",
				Help: "Notification delivery attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		NotifierAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chargewatch_notify_channel_available",
			Help: "1 if a delivery channel is active, 0 if notifications are only logged",
		}),
		SourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chargewatch_source_errors_total",
			Help: "Failed sample reads from the configured source",
		}),
	}
	reg.MustRegister(
		m.TicksTotal,
		m.EventsTotal,
		m.EvaluationErrors,
		m.DeliveriesTotal,
		m.NotifierAvailable,
		m.SourceErrors,
	)
	return m
}

// Tick counts one monitor tick.
func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.TicksTotal.Inc()
}

// Event counts one triggered event for rule.
func (m *Metrics) Event(rule string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(rule).Inc()
}

// EvaluationError counts one tick with a failed evaluation.
func (m *Metrics) EvaluationError() {
	if m == nil {
		return
	}
	m.EvaluationErrors.Inc()
}

// Delivery records the result of one delivery attempt on channel.
func (m *Metrics) Delivery(channel string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	m.DeliveriesTotal.WithLabelValues(channel, result).Inc()
}

// ChannelAvailable sets whether a delivery channel is active.
func (m *Metrics) ChannelAvailable(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.NotifierAvailable.Set(1)
	} else {
		m.NotifierAvailable.Set(0)
	}
}

// SourceError counts one failed sample read.
func (m *Metrics) SourceError() {
	if m == nil {
		return
	}
	m.SourceErrors.Inc()
}
