package iterator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the work done by iterators. A single Metrics may be
// shared by many iterators; series are labelled by direction ("parse"
// or "write").
type Metrics struct {
	records *prometheus.CounterVec
	atoms   *prometheus.CounterVec
	errors  *prometheus.CounterVec
}

// NewMetrics creates the iterator metrics and registers them with reg.
// A nil reg creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swecommon",
			Name:      "records_total",
			Help:      "Total number of data records traversed.",
		}, []string{"direction"}),
		atoms: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swecommon",
			Name:      "atoms_total",
			Help:      "Total number of scalar values processed.",
		}, []string{"direction"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swecommon",
			Name:      "errors_total",
			Help:      "Total number of traversals aborted by an error.",
		}, []string{"direction"}),
	}
}
