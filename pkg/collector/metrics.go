package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes collection counters to Prometheus.
type Metrics struct {
	collections *prometheus.CounterVec
	failures    *prometheus.CounterVec
	flows       prometheus.Counter
}

// NewMetrics creates and registers the collector metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goflowprep_collections_total",
			Help: "Completed collection runs by type.",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goflowprep_collection_failures_total",
			Help: "Failed collection runs by type.",
		}, []string{"type"}),
		flows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goflowprep_flows_collected_total",
			Help: "Flow records collected and saved.",
		}),
	}
	reg.MustRegister(m.collections, m.failures, m.flows)
	return m
}
