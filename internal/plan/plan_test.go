package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/store"
)

func statsWith(kinds ...ir.FactKind) store.Statistics {
	counts := make(map[ir.FactKind]int)
	for _, k := range kinds {
		counts[k] = 1
	}
	return store.Statistics{PerKindCounts: counts}
}

func TestPlanSingleLeafUsesTypeIndexScan(t *testing.T) {
	r, err := dsl.Parse(`forbid(rule: "r1") on { exists(Fact{ type: TaintSink }) }`, nil)
	require.NoError(t, err)

	p, err := Plan(r.Condition, statsWith(ir.KindTaintSink))
	require.NoError(t, err)
	assert.Equal(t, TypeIndexScan{Kind: ir.KindTaintSink}, p)
}

func TestPlanFlowJoinOnSharedFlowVariable(t *testing.T) {
	r, err := dsl.Parse(`forbid(rule: "r1") on {
		exists(Fact{ type: TaintSource, flow_id: $f }) && exists(Fact{ type: TaintSink, consumes_flow: $f })
	}`, nil)
	require.NoError(t, err)

	p, err := Plan(r.Condition, statsWith(ir.KindTaintSource, ir.KindTaintSink))
	require.NoError(t, err)
	andP, ok := p.(AndPlan)
	require.True(t, ok)
	require.Len(t, andP.Steps, 1)
	fj, ok := andP.Steps[0].(FlowJoin)
	require.True(t, ok)
	assert.Equal(t, ir.KindTaintSource, fj.Left)
	assert.Equal(t, ir.KindTaintSink, fj.Right)
}

func TestPlanNegatedFlowJoinWrapsInNotPlan(t *testing.T) {
	r, err := dsl.Parse(`forbid(rule: "r1") on {
		exists(Fact{ type: TaintSource, flow_id: $f })
		&& exists(Fact{ type: TaintSink, consumes_flow: $f })
		&& !exists(Fact{ type: Sanitization, sanitizes_flow: $f })
	}`, nil)
	require.NoError(t, err)

	p, err := Plan(r.Condition, statsWith(ir.KindTaintSource, ir.KindTaintSink, ir.KindSanitization))
	require.NoError(t, err)
	andP, ok := p.(AndPlan)
	require.True(t, ok)
	require.Len(t, andP.Steps, 2)

	var sawFlowJoin, sawNotFlowJoin bool
	for _, step := range andP.Steps {
		switch s := step.(type) {
		case FlowJoin:
			sawFlowJoin = true
		case NotPlan:
			if _, ok := s.Inner.(FlowJoin); ok {
				sawNotFlowJoin = true
			}
		}
	}
	assert.True(t, sawFlowJoin, "expected a direct FlowJoin step")
	assert.True(t, sawNotFlowJoin, "expected a negated FlowJoin step")
}

func TestPlanRejectsUnjoinableNegation(t *testing.T) {
	r, err := dsl.Parse(`forbid(rule: "r1") on {
		exists(Fact{ type: TaintSink, function: $fn })
		&& !exists(Fact{ type: UnsafeCall, function: $fn })
	}`, nil)
	require.NoError(t, err)

	_, err = Plan(r.Condition, statsWith(ir.KindTaintSink, ir.KindUnsafeCall))
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, UnsupportedCondition, perr.Kind)
}

func TestPlanOrBuildsOrPlan(t *testing.T) {
	r, err := dsl.Parse(`permit(rule: "r1") on {
		exists(Fact{ type: TaintSink, category: "SqlQuery" }) || exists(Fact{ type: TaintSink, category: "Network" })
	}`, nil)
	require.NoError(t, err)

	p, err := Plan(r.Condition, statsWith(ir.KindTaintSink))
	require.NoError(t, err)
	orP, ok := p.(OrPlan)
	require.True(t, ok)
	assert.Len(t, orP.Steps, 2)
}
