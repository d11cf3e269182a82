// Package metrics exposes Prometheus collectors for trigger synchronization.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alerttrigger"

// Resync result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics owns a private Prometheus registry with service collectors.
type Metrics struct {
	registry         *prometheus.Registry
	dispatch         *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
	skipped          prometheus.Counter
	resync           *prometheus.CounterVec
	activeTriggers   prometheus.Gauge
	events           *prometheus.CounterVec
}

// New creates and registers all collectors.
// Params: none.
// Returns: metrics set bound to its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Trigger messages delivered to the alert sink.",
		}, []string{"action"}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_failures_total",
			Help:      "Trigger messages the alert sink failed to accept.",
		}, []string{"action"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "Evaluations skipped because the API owner has no email.",
		}),
		resync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resync_total",
			Help:      "Full resynchronization runs by result.",
		}, []string{"result"}),
		activeTriggers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_triggers",
			Help:      "Trigger ids currently tracked as active.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Lifecycle events received by ingest source.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		m.dispatch,
		m.dispatchFailures,
		m.skipped,
		m.resync,
		m.activeTriggers,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDispatch counts one sink delivery attempt outcome.
// Params: action label (activate/deactivate) and delivery error.
func (m *Metrics) ObserveDispatch(action string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.dispatchFailures.WithLabelValues(action).Inc()
		return
	}
	m.dispatch.WithLabelValues(action).Inc()
}

// ObserveSkip counts one skipped evaluation.
func (m *Metrics) ObserveSkip() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}

// ObserveResync counts one resync run.
func (m *Metrics) ObserveResync(err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.resync.WithLabelValues(result).Inc()
}

// SetActiveTriggers publishes tracker size.
func (m *Metrics) SetActiveTriggers(count int) {
	if m == nil {
		return
	}
	m.activeTriggers.Set(float64(count))
}

// ObserveEvent counts one received lifecycle event.
// Params: ingest source label (http/nats).
func (m *Metrics) ObserveEvent(source string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(source).Inc()
}
