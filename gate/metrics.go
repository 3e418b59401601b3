package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded by the request counter.
const (
	OutcomeSafe    = "safe"
	OutcomeExempt  = "exempt"
	OutcomeAllowed = "allowed"
	OutcomeBlocked = "blocked"
)

// Metrics counts requests seen by the gate.
type Metrics struct {
	Requests *prometheus.CounterVec
}

// NewMetrics registers the gate metrics with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessgate_gate_requests_total",
				Help: "Total number of outbound requests checked by the gate, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}
