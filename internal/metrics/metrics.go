// Package metrics exposes Prometheus counters for document and registry operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the approval engine.
type Metrics struct {
	DocumentsCreated     *prometheus.CounterVec
	Decisions            *prometheus.CounterVec
	ConcurrencyConflicts *prometheus.CounterVec
	NumbersAllocated     *prometheus.CounterVec
}

// New registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saraban_documents_created_total",
			Help: "Total documents created by category",
		}, []string{"category"}),

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saraban_decisions_total",
			Help: "Total committed decisions by category and decision",
		}, []string{"category", "decision"}),

		// retried commits, not failures
		ConcurrencyConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saraban_commit_conflicts_total",
			Help: "Total optimistic commit conflicts by category",
		}, []string{"category"}),

		NumbersAllocated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saraban_registry_numbers_allocated_total",
			Help: "Total registry numbers allocated by category",
		}, []string{"category"}),
	}
}

func (m *Metrics) IncCreated(category string) {
	if m != nil {
		m.DocumentsCreated.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncDecision(category, decision string) {
	if m != nil {
		m.Decisions.WithLabelValues(category, decision).Inc()
	}
}

func (m *Metrics) IncConflict(category string) {
	if m != nil {
		m.ConcurrencyConflicts.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncAllocation(category string) {
	if m != nil {
		m.NumbersAllocated.WithLabelValues(category).Inc()
	}
}
