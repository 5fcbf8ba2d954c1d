package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts reconciliation outcomes.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reconciled *prometheus.CounterVec
	buffered   *prometheus.CounterVec
	approvals  prometheus.Counter
	broadcasts *prometheus.CounterVec
}

// NewMetrics creates the engine counters and registers them with reg
// when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bosync",
			Name:      "reconciled_total",
			Help:      "Reconcile calls by object kind and resulting state.",
		}, []string{"kind", "state"}),
		buffered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bosync",
			Name:      "buffered_operations_total",
			Help:      "Operations added to the proposal buffer by operation name.",
		}, []string{"op"}),
		approvals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bosync",
			Name:      "approvals_queued_total",
			Help:      "Proposal approvals added to the direct buffer.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bosync",
			Name:      "broadcasts_total",
			Help:      "Buffer broadcasts by buffer and result.",
		}, []string{"buffer", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.reconciled, m.buffered, m.approvals, m.broadcasts)
	}
	return m
}

func (m *Metrics) observeState(s Syncable, state State) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(s.Schema().Kind.Name(), state.String()).Inc()
}

func (m *Metrics) observeBuffered(op string) {
	if m == nil {
		return
	}
	m.buffered.WithLabelValues(op).Inc()
}

func (m *Metrics) observeApprovals(n int) {
	if m == nil {
		return
	}
	m.approvals.Add(float64(n))
}

func (m *Metrics) observeBroadcast(buffer string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case IsAlreadyExists(err):
		result = "already_exists"
	case err != nil:
		result = "error"
	}
	m.broadcasts.WithLabelValues(buffer, result).Inc()
}
