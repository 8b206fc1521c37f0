// Package metrics exposes Prometheus counters for identity processing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the identity domain counters.
type Metrics struct {
	LeadsCreated   prometheus.Counter
	LeadsUnified   prometheus.Counter
	EventsRecorded prometheus.Counter
	ConflictsSplit prometheus.Counter
}

// New creates and registers the identity metrics.
func New() *Metrics {
	return &Metrics{
		LeadsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadconnect_leads_created_total",
			Help: "Total number of leads created",
		}),
		LeadsUnified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadconnect_leads_unified_total",
			Help: "Total number of leads merged away by unification",
		}),
		EventsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadconnect_events_recorded_total",
			Help: "Total number of events recorded against leads",
		}),
		ConflictsSplit: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadconnect_identity_conflicts_total",
			Help: "Total number of identifying conflicts quarantined into new fragments",
		}),
	}
}

func (m *Metrics) IncLeadsCreated() {
	if m != nil {
		m.LeadsCreated.Inc()
	}
}

func (m *Metrics) IncLeadsUnified(n int) {
	if m != nil {
		m.LeadsUnified.Add(float64(n))
	}
}

func (m *Metrics) IncEventsRecorded() {
	if m != nil {
		m.EventsRecorded.Inc()
	}
}

func (m *Metrics) IncConflictsSplit() {
	if m != nil {
		m.ConflictsSplit.Inc()
	}
}
