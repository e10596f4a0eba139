package obs

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every instrument the evaluation core emits. It is
// constructed once per run against a caller-owned prometheus.Registerer —
// never against prometheus.DefaultRegisterer — so a long-lived host process
// that evaluates many runs can scope or discard a run's metrics instead of
// colliding on repeated registration.
type Metrics struct {
	RuleDuration       prometheus.Histogram
	RuleTimeouts       prometheus.Counter
	FindingsBySeverity *prometheus.CounterVec
	GateEvaluations    *prometheus.CounterVec
}

// NewMetrics registers and returns a fresh instrument set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RuleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "govern",
			Subsystem: "engine",
			Name:      "rule_evaluation_seconds",
			Help:      "Wall time spent evaluating a single rule's condition.",
			Buckets:   prometheus.DefBuckets,
		}),
		RuleTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "govern",
			Subsystem: "engine",
			Name:      "rule_timeouts_total",
			Help:      "Rules that exceeded their per-rule timeout.",
		}),
		FindingsBySeverity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "govern",
			Subsystem: "engine",
			Name:      "findings_total",
			Help:      "Findings produced, partitioned by severity.",
		}, []string{"severity"}),
		GateEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "govern",
			Subsystem: "gate",
			Name:      "evaluations_total",
			Help:      "Quality gate evaluations, partitioned by gate name and pass/fail outcome.",
		}, []string{"gate", "outcome"}),
	}
	reg.MustRegister(m.RuleDuration, m.RuleTimeouts, m.FindingsBySeverity, m.GateEvaluations)
	return m
}
