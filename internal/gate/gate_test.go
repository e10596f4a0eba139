package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/engine"
	"github.com/1homsi/govern/internal/gate"
	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/registry"
	"github.com/1homsi/govern/internal/store"
)

func findingAt(sev ir.Severity) engine.Finding {
	return engine.Finding{RuleID: "r", Kind: dsl.Forbid, Severity: sev}
}

func TestGateCountThreshold(t *testing.T) {
	findings := []engine.Finding{findingAt(ir.SeverityCritical), findingAt(ir.SeverityMajor), findingAt(ir.SeverityMinor)}
	g := gate.Gate{
		Name:    "no-more-than-one-critical",
		Metric:  gate.MetricQuery{Kind: gate.Count, Source: gate.SourceFindings, MinSeverity: sevPtr(ir.SeverityCritical)},
		Threshold: gate.Threshold{Op: "<=", Value: 1},
		Severity: ir.SeverityBlocker,
		Enabled:  true,
	}
	res, err := gate.Evaluate(g, nil, findings, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1), res.Value)
	assert.True(t, res.Passed)
}

func TestGateFailsOverThreshold(t *testing.T) {
	findings := []engine.Finding{findingAt(ir.SeverityCritical), findingAt(ir.SeverityCritical)}
	g := gate.Gate{
		Name:      "no-more-than-one-critical",
		Metric:    gate.MetricQuery{Kind: gate.Count, Source: gate.SourceFindings, MinSeverity: sevPtr(ir.SeverityCritical)},
		Threshold: gate.Threshold{Op: "<=", Value: 1},
		Severity:  ir.SeverityBlocker,
		Enabled:   true,
	}
	res, err := gate.Evaluate(g, nil, findings, nil)
	require.NoError(t, err)
	assert.False(t, res.Passed)
}

func TestDisabledGateAlwaysPasses(t *testing.T) {
	g := gate.Gate{Name: "off", Enabled: false}
	res, err := gate.Evaluate(g, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.True(t, res.Skipped)
}

// TestGateCountOfCriticalDependencyVulnerabilities is spec.md §4.6's
// worked Scenario C, run literally: Count{kind=DependencyVulnerability,
// predicate: severity == "Critical"} over 3 Critical and 1 Major fact
// must yield actual=3, and a <= 0 threshold must fail.
func TestGateCountOfCriticalDependencyVulnerabilities(t *testing.T) {
	doc := ir.IntermediateRepresentation{Facts: []ir.Fact{
		{ID: 0, Type: ir.DependencyVulnerability{DependencyName: "left-pad", CVE: "CVE-2024-0001", Severity: ir.SeverityCritical}},
		{ID: 1, Type: ir.DependencyVulnerability{DependencyName: "event-stream", CVE: "CVE-2024-0002", Severity: ir.SeverityCritical}},
		{ID: 2, Type: ir.DependencyVulnerability{DependencyName: "colors", CVE: "CVE-2024-0003", Severity: ir.SeverityCritical}},
		{ID: 3, Type: ir.DependencyVulnerability{DependencyName: "node-ipc", CVE: "CVE-2024-0004", Severity: ir.SeverityMajor}},
	}}
	st := store.Build(doc)
	g := gate.Gate{
		Name: "no-critical-dependency-vulnerabilities",
		Metric: gate.MetricQuery{
			Kind: gate.Count, Source: gate.SourceFacts,
			FactKind:  ir.KindDependencyVulnerable,
			Predicate: &gate.FieldPredicate{Field: "severity", Op: "==", Value: "Critical"},
		},
		Threshold: gate.Threshold{Op: "<=", Value: 0},
		Severity:  ir.SeverityBlocker,
		Enabled:   true,
	}
	res, err := gate.Evaluate(g, st, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(3), res.Value)
	assert.Equal(t, float64(0), res.Expected)
	assert.Equal(t, "<=", res.Operator)
	assert.False(t, res.Passed)
}

func TestGateOverFactsCoveragePercentile(t *testing.T) {
	doc := ir.IntermediateRepresentation{Facts: []ir.Fact{
		{ID: 0, Type: ir.CoverageStats{Scope: ir.CoverageScopeFile, Path: "a.go", LinePercent: 50}},
		{ID: 1, Type: ir.CoverageStats{Scope: ir.CoverageScopeFile, Path: "b.go", LinePercent: 90}},
		{ID: 2, Type: ir.CoverageStats{Scope: ir.CoverageScopeFile, Path: "c.go", LinePercent: 70}},
	}}
	st := store.Build(doc)
	g := gate.Gate{
		Name: "median-coverage",
		Metric: gate.MetricQuery{
			Kind: gate.Percentile, Source: gate.SourceFacts,
			FactKind: ir.KindCoverageStats, Field: "line_percent", Percentile: 50,
		},
		Threshold: gate.Threshold{Op: ">=", Value: 60},
		Severity:  ir.SeverityMajor,
		Enabled:   true,
	}
	res, err := gate.Evaluate(g, st, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(70), res.Value)
	assert.True(t, res.Passed)
}

func TestGateCustomAggregator(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterAggregator("composite_risk_score", registry.CompositeRiskScore))

	findings := []engine.Finding{findingAt(ir.SeverityBlocker), findingAt(ir.SeverityMinor)}
	g := gate.Gate{
		Name:      "risk-score",
		Metric:    gate.MetricQuery{Kind: gate.Custom, AggregatorName: "composite_risk_score"},
		Threshold: gate.Threshold{Op: "<", Value: 50},
		Severity:  ir.SeverityCritical,
		Enabled:   true,
	}
	res, err := gate.Evaluate(g, nil, findings, reg)
	require.NoError(t, err)
	assert.Equal(t, float64(43), res.Value) // 40 (Blocker) + 3 (Minor)
	assert.True(t, res.Passed)
}

func TestEvaluateAllRollsUpExitCode(t *testing.T) {
	gates := []gate.Gate{
		{Name: "ok", Metric: gate.MetricQuery{Kind: gate.Count, Source: gate.SourceFindings}, Threshold: gate.Threshold{Op: "==", Value: 0}, Severity: ir.SeverityMinor, Enabled: true},
		{Name: "fails", Metric: gate.MetricQuery{Kind: gate.Count, Source: gate.SourceFindings}, Threshold: gate.Threshold{Op: "<", Value: 0}, Severity: ir.SeverityBlocker, Enabled: true},
	}
	report, err := gate.EvaluateAll(gates, nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Equal(t, 3, report.ExitCode)
}

func sevPtr(s ir.Severity) *ir.Severity { return &s }
