package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1homsi/govern/internal/gate"
	"github.com/1homsi/govern/internal/ir"
)

const sampleGatesYAML = `
gates:
  - name: no-critical-findings
    metric: count
    source: findings
    min_severity: critical
    op: "<="
    value: 0
    severity: blocker

  - name: median-file-coverage
    metric: percentile
    source: facts
    fact_kind: CoverageStats
    field: line_percent
    percentile: 50
    op: ">="
    value: 70
    severity: major

  - name: composite-risk
    metric: custom
    aggregator: composite_risk_score
    op: "<"
    value: 50
    severity: critical
    enabled: false

  - name: no-critical-dependency-vulnerabilities
    metric: count
    source: facts
    fact_kind: DependencyVulnerability
    predicate:
      field: severity
      op: "=="
      value: Critical
    op: "<="
    value: 0
    severity: blocker
`

func TestLoadGatesResolvesEnumsAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleGatesYAML), 0o644))

	gates, err := LoadGates(path)
	require.NoError(t, err)
	require.Len(t, gates, 4)

	assert.Equal(t, gate.Count, gates[0].Metric.Kind)
	assert.Equal(t, gate.SourceFindings, gates[0].Metric.Source)
	require.NotNil(t, gates[0].Metric.MinSeverity)
	assert.Equal(t, ir.SeverityCritical, *gates[0].Metric.MinSeverity)
	assert.True(t, gates[0].Enabled) // defaulted, not specified in YAML

	assert.Equal(t, gate.Percentile, gates[1].Metric.Kind)
	assert.Equal(t, ir.FactKind("CoverageStats"), gates[1].Metric.FactKind)
	assert.Equal(t, float64(50), gates[1].Metric.Percentile)

	assert.Equal(t, gate.Custom, gates[2].Metric.Kind)
	assert.Equal(t, "composite_risk_score", gates[2].Metric.AggregatorName)
	assert.False(t, gates[2].Enabled)

	require.NotNil(t, gates[3].Metric.Predicate)
	assert.Equal(t, "severity", gates[3].Metric.Predicate.Field)
	assert.Equal(t, "==", gates[3].Metric.Predicate.Op)
	assert.Equal(t, "Critical", gates[3].Metric.Predicate.Value)
}

func TestLoadGatesRejectsUnknownMetricKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gates:\n  - name: bad\n    metric: bogus\n    severity: minor\n"), 0o644))

	_, err := LoadGates(path)
	assert.Error(t, err)
}
