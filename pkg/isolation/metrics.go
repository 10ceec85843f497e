package isolation

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront"

// Metrics are the alertable counters of the isolation layer.
type Metrics struct {
	violations     *prometheus.CounterVec
	missingContext prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cross_tenant_violations_total",
			Help:      "Number of operations rejected because they targeted another tenant's data.",
		}, []string{"operation"}),
		missingContext: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_context_total",
			Help:      "Number of data operations attempted without a request context.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.violations, m.missingContext)
	}
	return m
}

// PrometheusCollectors returns the collectors for manual registration.
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{m.violations, m.missingContext}
}

func (m *Metrics) Violations() *prometheus.CounterVec { return m.violations }

func (m *Metrics) MissingContext() prometheus.Counter { return m.missingContext }
