package report_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/engine"
	"github.com/1homsi/govern/internal/gate"
	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/report"
	"github.com/1homsi/govern/internal/store"
)

func sampleRun(t *testing.T) (*store.Store, report.Run) {
	t.Helper()
	path, err := ir.NewProjectPath("app.go", "/proj")
	require.NoError(t, err)
	loc := &ir.SourceLocation{Path: path, Line: 42}

	doc := ir.IntermediateRepresentation{Facts: []ir.Fact{
		{ID: 0, Type: ir.TaintSink{Function: "db.Query", Category: ir.SinkSqlQuery, Severity: ir.SeverityCritical}, Location: loc},
	}}
	st := store.Build(doc)

	findings := []engine.Finding{
		{RuleID: "no-unsanitized-sql", Kind: dsl.Forbid, Severity: ir.SeverityCritical, Description: "unsanitized SQL sink", FactIDs: []ir.FactId{0}},
	}
	gates := gate.Report{
		Results:  []gate.Result{{Name: "max-critical", Value: 1, Expected: 0, Operator: "<=", Passed: false, Severity: ir.SeverityBlocker}},
		ExitCode: 3,
		Passed:   false,
	}
	return st, report.Run{AnalysisID: "run-1", ProjectName: "demo", Findings: findings, Gates: gates, Passed: false}
}

func TestWriteJSONIncludesLocationAndGates(t *testing.T) {
	st, run := sampleRun(t)
	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf, st, run))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["analysis_id"])
	assert.Equal(t, float64(3), decoded["exit_code"])

	findings := decoded["findings"].([]any)
	require.Len(t, findings, 1)
	f0 := findings[0].(map[string]any)
	assert.Equal(t, "app.go", f0["file"])
	assert.Equal(t, float64(42), f0["line"])

	gates := decoded["gates"].([]any)
	require.Len(t, gates, 1)
	g0 := gates[0].(map[string]any)
	assert.Equal(t, float64(0), g0["expected"])
	assert.Equal(t, "<=", g0["operator"])
}

func TestWriteSARIFProducesOneRulePerRuleID(t *testing.T) {
	st, run := sampleRun(t)
	var buf bytes.Buffer
	require.NoError(t, report.WriteSARIF(&buf, st, run))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	runs := decoded["runs"].([]any)
	require.Len(t, runs, 1)
	tool := runs[0].(map[string]any)["tool"].(map[string]any)["driver"].(map[string]any)
	rules := tool["rules"].([]any)
	assert.Len(t, rules, 1)

	results := runs[0].(map[string]any)["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "error", results[0].(map[string]any)["level"])
}

func TestWriteTextRendersFailedVerdict(t *testing.T) {
	st, run := sampleRun(t)
	var buf bytes.Buffer
	report.WriteText(&buf, st, run)
	out := buf.String()
	assert.Contains(t, out, "no-unsanitized-sql")
	assert.Contains(t, out, "app.go:42")
	assert.Contains(t, out, "FAILED")
}
