// Package metrics exposes Prometheus counters for the logbook: changes seen
// on the bus, import outcomes and open event streams.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/internal/importer"
)

// Metrics holds the logbook collectors and the registry they live in.
//
// Metrics:
//   - logbook_changes_total{source,key} - change notifications seen on the bus
//   - logbook_imports_total{result} - imports by outcome (ok, failed)
//   - logbook_imported_logs_total - logs merged by imports
//   - logbook_import_dropped_total - malformed import candidates dropped
//   - logbook_event_streams - open server-sent event streams
type Metrics struct {
	reg *prometheus.Registry

	ChangesTotal  *prometheus.CounterVec
	ImportsTotal  *prometheus.CounterVec
	ImportedLogs  prometheus.Counter
	ImportDropped prometheus.Counter
	EventStreams  prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ChangesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbook_changes_total",
				Help: "Change notifications seen on the bus",
			},
			[]string{"source", "key"},
		),
		ImportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbook_imports_total",
				Help: "Imports by outcome",
			},
			[]string{"result"},
		),
		ImportedLogs: f.NewCounter(prometheus.CounterOpts{
			Name: "logbook_imported_logs_total",
			Help: "Logs merged by imports",
		}),
		ImportDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "logbook_import_dropped_total",
			Help: "Malformed import candidates dropped",
		}),
		EventStreams: f.NewGauge(prometheus.GaugeOpts{
			Name: "logbook_event_streams",
			Help: "Open server-sent event streams",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Watch counts every notification on b until the subscription is dropped.
func (m *Metrics) Watch(b *bus.Bus) *bus.Subscription {
	return b.Subscribe(func(ev bus.Event) {
		m.ChangesTotal.WithLabelValues(ev.Source.String(), ev.Key).Inc()
	})
}

// ObserveImport records the outcome of one import.
func (m *Metrics) ObserveImport(st importer.Status) {
	if st.Err != nil {
		m.ImportsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.ImportsTotal.WithLabelValues("ok").Inc()
	m.ImportedLogs.Add(float64(st.Imported))
	m.ImportDropped.Add(float64(st.Dropped))
}
