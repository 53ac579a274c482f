package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rpgo/rpgo/model"
)

const (
	MetricsNamespace = "rpgo"

	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics counts what a reporting process did. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	eventsTotal         *prometheus.CounterVec
	connectorCallsTotal *prometheus.CounterVec
	testsTotal          *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "events_total",
			Help:      "Count of test lifecycle events handled",
		}, []string{
			"kind",
		}),
		connectorCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "connector_calls_total",
			Help:      "Count of calls made to the reporting backend",
		}, []string{
			"operation",
			"result",
		}),
		testsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Count of tests reported by final status",
		}, []string{
			"status",
		}),
	}
}

// RecordEvent counts a handled lifecycle event.
func (m *Metrics) RecordEvent(kind model.EventKind) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(string(kind)).Inc()
}

// RecordCall counts one connector call; err decides the result label.
func (m *Metrics) RecordCall(operation string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.connectorCallsTotal.WithLabelValues(operation, result).Inc()
}

// RecordTest counts a reported test by its final status.
func (m *Metrics) RecordTest(status model.Status) {
	if m == nil {
		return
	}
	m.testsTotal.WithLabelValues(string(status)).Inc()
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
