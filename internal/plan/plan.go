// Package plan implements the Query Planner (spec.md §4.4): a pure
// function from a rule's condition tree and the store's index statistics to
// an access-path Plan. Planning never touches the store itself — it only
// decides how evaluation will touch it.
package plan

import (
	"fmt"

	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/schema"
	"github.com/1homsi/govern/internal/store"
)

// Plan is the closed set of access-path choices the planner can emit.
type Plan interface{ isPlan() }

// FullScan iterates every fact in the store (Kind == "" means every kind);
// it is the fallback when no index gives a cheaper path.
type FullScan struct{ Kind ir.FactKind }

func (FullScan) isPlan() {}

// TypeIndexScan iterates the by-kind index for Kind.
type TypeIndexScan struct{ Kind ir.FactKind }

func (TypeIndexScan) isPlan() {}

// SpatialJoin realizes a conjunction of two FactExists patterns correlated
// by shared file+line variables via the store's by-location index.
type SpatialJoin struct {
	Left, Right ir.FactKind
	LeftField   string
	RightField  string
}

func (SpatialJoin) isPlan() {}

// FlowJoin realizes a conjunction of two FactExists patterns correlated by
// a shared FlowId-typed variable via the store's by-flow index.
type FlowJoin struct {
	Left, Right ir.FactKind
	LeftField   string
	RightField  string
}

func (FlowJoin) isPlan() {}

// AndPlan evaluates every Step and intersects (subject to shared-variable
// consistency, checked by the evaluator, not the planner).
type AndPlan struct{ Steps []Plan }

func (AndPlan) isPlan() {}

// OrPlan evaluates every Step and unions.
type OrPlan struct{ Steps []Plan }

func (OrPlan) isPlan() {}

// NotPlan evaluates Inner and negates.
type NotPlan struct{ Inner Plan }

func (NotPlan) isPlan() {}

// Error reports a condition the planner cannot realize.
type Error struct {
	Kind    ErrorKind
	Message string
}

type ErrorKind int

const (
	UnsupportedCondition ErrorKind = iota
)

func (e *Error) Error() string { return fmt.Sprintf("plan: %s", e.Message) }

// Plan translates cond into an access-path tree, choosing the cheapest
// realizable plan at every node given stats. It returns an
// UnsupportedCondition Error when a negation correlates with a sibling
// through a variable that no index can join on (spec.md §9, Open Question:
// the planner rejects unjoinable negations rather than silently falling
// back to an unindexed nested loop).
func Plan(cond dsl.Condition, stats store.Statistics) (Plan, error) {
	switch c := cond.(type) {
	case *dsl.FactExists:
		return planLeaf(c, stats), nil
	case *dsl.And:
		return planAnd(c, stats)
	case *dsl.Or:
		steps := make([]Plan, 0, len(c.Operands))
		for _, op := range c.Operands {
			p, err := Plan(op, stats)
			if err != nil {
				return nil, err
			}
			steps = append(steps, p)
		}
		return OrPlan{Steps: steps}, nil
	case *dsl.Not:
		if fe, ok := c.Operand.(*dsl.FactExists); ok {
			return NotPlan{Inner: planLeaf(fe, stats)}, nil
		}
		inner, err := Plan(c.Operand, stats)
		if err != nil {
			return nil, err
		}
		return NotPlan{Inner: inner}, nil
	default:
		return nil, &Error{Kind: UnsupportedCondition, Message: fmt.Sprintf("unrecognized condition node %T", cond)}
	}
}

// planLeaf picks the access path for a single FactExists with no
// join partner: the by-kind index when the kind is known, a full scan
// otherwise (e.g. an unresolved Custom pattern with no registered schema
// would already have failed resolution, so this is effectively always a
// TypeIndexScan in practice).
func planLeaf(fe *dsl.FactExists, stats store.Statistics) Plan {
	if fe.Kind == "" {
		return FullScan{}
	}
	if _, ok := stats.PerKindCounts[fe.Kind]; !ok {
		return FullScan{Kind: fe.Kind}
	}
	return TypeIndexScan{Kind: fe.Kind}
}

func planAnd(c *dsl.And, stats store.Statistics) (Plan, error) {
	consumed := make([]bool, len(c.Operands))
	var steps []Plan

	// First pass: greedily pair sibling FactExists/Not(FactExists) operands
	// that share a joinable variable, realizing each pair as one Spatial or
	// Flow join step.
	for i := 0; i < len(c.Operands); i++ {
		if consumed[i] {
			continue
		}
		leftFE, leftNeg := asFactExists(c.Operands[i])
		if leftFE == nil {
			continue
		}
		for j := i + 1; j < len(c.Operands); j++ {
			if consumed[j] {
				continue
			}
			rightFE, rightNeg := asFactExists(c.Operands[j])
			if rightFE == nil {
				continue
			}
			if jp, ok := joinPlan(leftFE, rightFE, stats); ok {
				var p Plan = jp
				if leftNeg && !rightNeg {
					p = NotPlan{Inner: p}
				} else if leftNeg && rightNeg {
					// both negated: double negation over a pair is
					// vanishingly rare in practice and not a shape the
					// planner special-cases; fall through to independent
					// per-leaf plans instead of joining them.
					continue
				} else if rightNeg && !leftNeg {
					p = NotPlan{Inner: p}
				}
				steps = append(steps, p)
				consumed[i] = true
				consumed[j] = true
				break
			}
		}
	}

	// Second pass: every remaining operand (unpaired FactExists, or a
	// negation that shares an otherwise-unjoinable variable, or a nested
	// And/Or/Not) is planned independently, except that a leftover negated
	// FactExists that can join against a positive sibling (even one already
	// paired above) is planned as NotPlan over that join. A Not whose
	// FactExists shares a variable with a sibling on a non-indexable field
	// is rejected here:
	// the planner has no access path for a correlated anti-join other than
	// the Spatial/Flow joins above.
	vars := make(map[string]bool)
	for i, op := range c.Operands {
		if consumed[i] {
			continue
		}
		for _, v := range dsl.Variables(op) {
			vars[v] = true
		}
	}
	for i, op := range c.Operands {
		if consumed[i] {
			continue
		}
		if notC, ok := op.(*dsl.Not); ok {
			if fe, ok := notC.Operand.(*dsl.FactExists); ok {
				if sharesUnjoinableVariable(fe, op, c.Operands, i) {
					return nil, &Error{
						Kind: UnsupportedCondition,
						Message: fmt.Sprintf(
							"negated pattern on %s shares a variable with a sibling condition on a field with no join index; rewrite to correlate on a flow_id or file+line pair", fe.Kind),
					}
				}
				var anti Plan
				for j, sib := range c.Operands {
					sibFE, sibNeg := asFactExists(sib)
					if j == i || sibFE == nil || sibNeg {
						continue
					}
					if jp, ok := joinPlan(sibFE, fe, stats); ok {
						anti = NotPlan{Inner: jp}
						break
					}
				}
				if anti != nil {
					steps = append(steps, anti)
					continue
				}
			}
		}
		p, err := Plan(op, stats)
		if err != nil {
			return nil, err
		}
		steps = append(steps, p)
	}
	return AndPlan{Steps: steps}, nil
}

func asFactExists(c dsl.Condition) (*dsl.FactExists, bool) {
	switch v := c.(type) {
	case *dsl.FactExists:
		return v, false
	case *dsl.Not:
		if fe, ok := v.Operand.(*dsl.FactExists); ok {
			return fe, true
		}
	}
	return nil, false
}

// sharesUnjoinableVariable reports whether fe shares a variable with any
// sibling operand on a field whose kind is not FlowId and not a file/line
// location pair, which would require an unindexed nested-loop anti-join.
func sharesUnjoinableVariable(fe *dsl.FactExists, self dsl.Condition, siblings []dsl.Condition, selfIdx int) bool {
	myVars := dsl.Variables(self)
	for i, sib := range siblings {
		if i == selfIdx {
			continue
		}
		sibVars := make(map[string]bool)
		for _, v := range dsl.Variables(sib) {
			sibVars[v] = true
		}
		for _, v := range myVars {
			if !sibVars[v] {
				continue
			}
			if !variableIsJoinable(fe, v) {
				return true
			}
		}
	}
	return false
}

func variableIsJoinable(fe *dsl.FactExists, varName string) bool {
	for _, b := range fe.Bindings {
		ref, ok := bindingVariable(b.Expr)
		if !ok || ref != varName {
			continue
		}
		if b.Field == "file" || b.Field == "line" {
			return true
		}
		f, ok := schema.Lookup(fe.Kind, b.Field)
		if ok && f.Kind == schema.KFlowID {
			return true
		}
	}
	return false
}

func bindingVariable(e dsl.BindingExpr) (string, bool) {
	switch v := e.(type) {
	case dsl.VariableRef:
		return v.Name, true
	case dsl.Comparison:
		return bindingVariable(v.Expr)
	}
	return "", false
}

// joinPlan proposes a Spatial or Flow join for a pair of FactExists
// patterns if they share a joinable variable, preferring FlowJoin (a
// precise correlation) over SpatialJoin (a coarser co-location match) when
// both are available.
func joinPlan(a, b *dsl.FactExists, stats store.Statistics) (Plan, bool) {
	if af, bf, ok := sharedField(a, b, schema.KFlowID); ok {
		return FlowJoin{Left: a.Kind, Right: b.Kind, LeftField: af, RightField: bf}, true
	}
	if hasField(a, "file") && hasField(a, "line") && hasField(b, "file") && hasField(b, "line") {
		if af, bf, ok := sharedVarField(a, b, "file"); ok {
			if _, _, ok2 := sharedVarField(a, b, "line"); ok2 {
				return SpatialJoin{Left: a.Kind, Right: b.Kind, LeftField: af, RightField: bf}, true
			}
		}
	}
	return nil, false
}

func hasField(fe *dsl.FactExists, field string) bool {
	for _, b := range fe.Bindings {
		if b.Field == field {
			return true
		}
	}
	return false
}

func sharedField(a, b *dsl.FactExists, kind schema.ValueKind) (string, string, bool) {
	for _, ba := range a.Bindings {
		av, ok := bindingVariable(ba.Expr)
		if !ok {
			continue
		}
		fa, ok := schema.Lookup(a.Kind, ba.Field)
		if !ok || fa.Kind != kind {
			continue
		}
		for _, bb := range b.Bindings {
			bv, ok := bindingVariable(bb.Expr)
			if !ok || bv != av {
				continue
			}
			fb, ok := schema.Lookup(b.Kind, bb.Field)
			if !ok || fb.Kind != kind {
				continue
			}
			return ba.Field, bb.Field, true
		}
	}
	return "", "", false
}

func sharedVarField(a, b *dsl.FactExists, field string) (string, string, bool) {
	av, aok := fieldVariable(a, field)
	bv, bok := fieldVariable(b, field)
	if aok && bok && av == bv {
		return field, field, true
	}
	return "", "", false
}

func fieldVariable(fe *dsl.FactExists, field string) (string, bool) {
	for _, b := range fe.Bindings {
		if b.Field == field {
			return bindingVariable(b.Expr)
		}
	}
	return "", false
}
