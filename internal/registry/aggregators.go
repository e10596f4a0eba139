package registry

import (
	"fmt"

	"github.com/1homsi/govern/internal/ir"
)

// ScoredItem is the minimal shape a composite metric aggregator needs from
// a finding: just its severity. Callers (internal/gate) map their own
// Finding type into ScoredItem before invoking a MetricAggregator, which
// keeps this package free of an import on internal/engine.
type ScoredItem struct {
	Severity ir.Severity
}

// severityWeight mirrors gorisk's priority.Compute weighting: higher
// severities contribute disproportionately more than a linear scale would,
// so a handful of Blocker findings dominates a gate's score over a long
// tail of Info findings.
var severityWeight = map[ir.Severity]float64{
	ir.SeverityInfo:     1,
	ir.SeverityMinor:    3,
	ir.SeverityMajor:    8,
	ir.SeverityCritical: 20,
	ir.SeverityBlocker:  40,
}

// CompositeRiskScore is a worked example MetricAggregator: a weighted sum
// of finding severities, capped at 100, adapted from gorisk's
// priority.Compute/deriveLevel composite score. store is unused (the
// signature accepts it so the aggregator type can address fact-derived
// metrics too) but kept for interface conformance.
func CompositeRiskScore(store any, findings any) (float64, error) {
	items, ok := findings.([]ScoredItem)
	if !ok {
		return 0, fmt.Errorf("registry: CompositeRiskScore expects []ScoredItem, got %T", findings)
	}
	var sum float64
	for _, it := range items {
		sum += severityWeight[it.Severity]
	}
	if sum > 100 {
		sum = 100
	}
	return sum, nil
}

// RiskLevel buckets a CompositeRiskScore value into a coarse label, the
// same four-way split gorisk's deriveLevel used.
func RiskLevel(score float64) string {
	switch {
	case score >= 75:
		return "severe"
	case score >= 40:
		return "elevated"
	case score >= 10:
		return "moderate"
	default:
		return "low"
	}
}
