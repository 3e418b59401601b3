package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lifecycle activity.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Exchanges   *prometheus.CounterVec
}

// NewMetrics registers the lifecycle metrics with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessgate_lifecycle_transitions_total",
				Help: "Total number of session state transitions",
			},
			[]string{"from", "to"},
		),
		Exchanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessgate_lifecycle_exchanges_total",
				Help: "Total number of backend exchanges by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

func (m *Metrics) transition(from, to State) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) exchange(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Exchanges.WithLabelValues(kind, result).Inc()
}
