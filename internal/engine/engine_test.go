package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/engine"
	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/store"
)

func mustPath(t *testing.T, p string) ir.ProjectPath {
	t.Helper()
	pp, err := ir.NewProjectPath(p, "/proj")
	require.NoError(t, err)
	return pp
}

func buildDoc(t *testing.T, sanitized bool) ir.IntermediateRepresentation {
	t.Helper()
	flow := ir.NewRandomFlowID()
	loc := &ir.SourceLocation{Path: mustPath(t, "/proj/app.go"), Line: 10}

	facts := []ir.Fact{
		{ID: 0, Type: ir.TaintSource{Variable: "req.Body", Flow: flow, SourceKind: "http-request", Confidence: ir.ConfidenceHigh}, Location: loc, Provenance: ir.Provenance{Confidence: ir.ConfidenceHigh}},
		{ID: 1, Type: ir.TaintSink{Function: "db.Query", ConsumesFlow: flow, Category: ir.SinkSqlQuery, Severity: ir.SeverityCritical}, Location: loc, Provenance: ir.Provenance{Confidence: ir.ConfidenceHigh}},
	}
	if sanitized {
		facts = append(facts, ir.Fact{
			ID: 2, Type: ir.Sanitization{Method: "sqlEscape", SanitizesFlow: flow, Effective: true, Confidence: ir.ConfidenceHigh},
			Location: loc, Provenance: ir.Provenance{Confidence: ir.ConfidenceHigh},
		})
	}
	return ir.IntermediateRepresentation{Facts: facts, Schema: ir.SchemaVersion{Major: 1, Minor: 0}}
}

const sinkRule = `forbid(rule: "no-unsanitized-sql", severity: critical) on {
	exists(Fact{ type: TaintSource, flow_id: $f })
	&& exists(Fact{ type: TaintSink, consumes_flow: $f })
	&& !exists(Fact{ type: Sanitization, sanitizes_flow: $f, effective: true })
}`

func TestEvaluateParallelFindsUnsanitizedFlow(t *testing.T) {
	doc := buildDoc(t, false)
	st := store.Build(doc)
	rule, err := dsl.Parse(sinkRule, nil)
	require.NoError(t, err)

	result, err := engine.EvaluateParallel(context.Background(), []*dsl.Rule{rule}, st, nil, engine.DefaultLimits(), nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "no-unsanitized-sql", result.Findings[0].RuleID)
	assert.Equal(t, ir.SeverityCritical, result.Findings[0].Severity)
	assert.Len(t, result.Findings[0].FactIDs, 2)
}

func TestEvaluateParallelSuppressesFindingWhenSanitized(t *testing.T) {
	doc := buildDoc(t, true)
	st := store.Build(doc)
	rule, err := dsl.Parse(sinkRule, nil)
	require.NoError(t, err)

	result, err := engine.EvaluateParallel(context.Background(), []*dsl.Rule{rule}, st, nil, engine.DefaultLimits(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, engine.StatusOK, result.Diagnostics[0].Status)
}

func TestEvaluateParallelRejectsTooManyRules(t *testing.T) {
	st := store.Build(ir.IntermediateRepresentation{})
	rule, err := dsl.Parse(`forbid(rule: "r") on { exists(Fact{ type: TaintSink }) }`, nil)
	require.NoError(t, err)

	limits := engine.DefaultLimits()
	limits.MaxRules = 0
	_, err = engine.EvaluateParallel(context.Background(), []*dsl.Rule{rule}, st, nil, limits, nil, nil)
	assert.NoError(t, err) // MaxRules == 0 means unbounded, not zero-allowed

	limits.MaxRules = 1
	_, err = engine.EvaluateParallel(context.Background(), []*dsl.Rule{rule, rule}, st, nil, limits, nil, nil)
	require.Error(t, err)
}

func TestEvaluateParallelZeroFactBudgetDisablesLimit(t *testing.T) {
	doc := buildDoc(t, false)
	st := store.Build(doc)
	rule, err := dsl.Parse(`forbid(rule: "scan-everything") on { exists(Fact{ type: TaintSource }) }`, nil)
	require.NoError(t, err)

	limits := engine.DefaultLimits()
	limits.MaxFactsPerQuery = 0 // disabled: budget nil, should not error
	result, err := engine.EvaluateParallel(context.Background(), []*dsl.Rule{rule}, st, nil, limits, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOK, result.Diagnostics[0].Status)
}

func TestEvaluateParallelRespectsGlobalTimeout(t *testing.T) {
	st := store.Build(ir.IntermediateRepresentation{})
	rule, err := dsl.Parse(`forbid(rule: "r") on { exists(Fact{ type: TaintSink }) }`, nil)
	require.NoError(t, err)

	limits := engine.DefaultLimits()
	limits.MaxEvalTime = time.Nanosecond

	result, err := engine.EvaluateParallel(context.Background(), []*dsl.Rule{rule}, st, nil, limits, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Aborted)
}
