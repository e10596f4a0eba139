package engine

import (
	"context"
	"fmt"

	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/registry"
	"github.com/1homsi/govern/internal/schema"
	"github.com/1homsi/govern/internal/store"
)

// match is one partial (or complete) variable assignment built up while
// walking a condition tree, together with the FactIds that justify it.
type match struct {
	bindings map[string]any
	factIDs  []ir.FactId
}

func (m match) clone() match {
	b := make(map[string]any, len(m.bindings))
	for k, v := range m.bindings {
		b[k] = v
	}
	ids := make([]ir.FactId, len(m.factIDs))
	copy(ids, m.factIDs)
	return match{bindings: b, factIDs: ids}
}

// evalCondition evaluates cond against partials, the set of variable
// assignments accumulated by sibling conjuncts so far, and returns every
// assignment extended (or, for Or/Not, produced/filtered) by cond. This is
// the engine's sole evaluation entry point: it consults the store's
// by-kind and by-flow indexes directly rather than walking a
// separately materialized plan.Plan, since the bindings a FactExists
// pattern must check are only available on the dsl.Condition tree.
// internal/plan is still consulted first, to validate the rule is
// realizable and reject unjoinable negations before evaluation begins.
func evalCondition(ctx context.Context, cond dsl.Condition, partials []match, st *store.Store, reg *registry.Registry, budget *int) ([]match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch c := cond.(type) {
	case *dsl.FactExists:
		var out []match
		for _, p := range partials {
			expansions, err := expandFactExists(ctx, c, p, st, reg, budget)
			if err != nil {
				return nil, err
			}
			out = append(out, expansions...)
		}
		return out, nil

	case *dsl.And:
		cur := partials
		for _, op := range c.Operands {
			var err error
			cur, err = evalCondition(ctx, op, cur, st, reg, budget)
			if err != nil {
				return nil, err
			}
			if len(cur) == 0 {
				return cur, nil
			}
		}
		return cur, nil

	case *dsl.Or:
		var out []match
		for _, op := range c.Operands {
			sub, err := evalCondition(ctx, op, partials, st, reg, budget)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil

	case *dsl.Not:
		var out []match
		for _, p := range partials {
			sub, err := evalCondition(ctx, c.Operand, []match{p}, st, reg, budget)
			if err != nil {
				return nil, err
			}
			if len(sub) == 0 {
				out = append(out, p)
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("engine: unrecognized condition node %T", cond)
	}
}

func expandFactExists(ctx context.Context, fe *dsl.FactExists, p match, st *store.Store, reg *registry.Registry, budget *int) ([]match, error) {
	candidates, err := candidateIDs(fe, p, st)
	if err != nil {
		return nil, err
	}

	var out []match
	for i, id := range candidates {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if budget != nil {
			if *budget <= 0 {
				return nil, fmt.Errorf("engine: rule exceeded its max-facts-per-query budget")
			}
			*budget--
		}
		fact, ok := st.Fact(id)
		if !ok {
			continue
		}
		if fe.Kind == ir.KindCustom {
			cf, ok := fact.Type.(ir.CustomFact)
			if !ok || cf.Discriminant != fe.Discriminant {
				continue
			}
		}
		next, ok, err := matchFact(fe, fact, p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, next)
		}
	}
	return out, nil
}

// candidateIDs narrows the facts expandFactExists must check, using the
// store's by-flow index when a binding's variable is already resolved in p
// to a FlowId on a FlowId-typed field, falling back to the by-kind index
// otherwise. The by-location index is not used here: file/line bindings
// are checked per candidate by matchFact.
func candidateIDs(fe *dsl.FactExists, p match, st *store.Store) ([]ir.FactId, error) {
	for _, b := range fe.Bindings {
		name, isVar := bindingVariable(b.Expr)
		if !isVar {
			continue
		}
		val, bound := p.bindings[name]
		if !bound {
			continue
		}
		if fe.Kind != ir.KindCustom {
			if f, ok := schema.Lookup(fe.Kind, b.Field); ok && f.Kind == schema.KFlowID {
				if flow, ok := val.(ir.FlowId); ok {
					return st.LookupByFlow(flow), nil
				}
			}
		}
	}
	return st.IterateByKind(fe.Kind), nil
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

// matchFact checks every field binding of fe against fact, extending p's
// bindings with any fresh variables encountered. It returns ok=false (not
// an error) on an ordinary field mismatch.
func matchFact(fe *dsl.FactExists, fact ir.Fact, p match) (match, bool, error) {
	next := p.clone()
	for _, b := range fe.Bindings {
		value, present := fieldValue(fe, fact, b.Field)
		if !present {
			return match{}, false, nil
		}
		ok, err := satisfies(b.Expr, value, next.bindings)
		if err != nil {
			return match{}, false, err
		}
		if !ok {
			return match{}, false, nil
		}
	}
	next.factIDs = append(next.factIDs, fact.ID)
	return next, true, nil
}

func fieldValue(fe *dsl.FactExists, fact ir.Fact, field string) (any, bool) {
	if fe.Kind == ir.KindCustom {
		cf, ok := fact.Type.(ir.CustomFact)
		if !ok {
			return nil, false
		}
		v, ok := cf.Fields[field]
		return v, ok
	}
	f, ok := schema.Lookup(fe.Kind, field)
	if !ok {
		return nil, false
	}
	return f.Get(fact)
}

// satisfies resolves e against value, binding any fresh variable into ctx.
func satisfies(e dsl.BindingExpr, value any, ctx map[string]any) (bool, error) {
	switch v := e.(type) {
	case dsl.VariableRef:
		if existing, bound := ctx[v.Name]; bound {
			return valuesEqual(existing, value), nil
		}
		ctx[v.Name] = value
		return true, nil
	case dsl.Literal:
		return valuesEqual(normalizeLiteral(v.Value, value), value), nil
	case dsl.Comparison:
		return satisfiesComparison(v, value, ctx)
	default:
		return false, fmt.Errorf("engine: unrecognized binding expression %T", e)
	}
}

func satisfiesComparison(c dsl.Comparison, value any, ctx map[string]any) (bool, error) {
	if ref, ok := c.Expr.(dsl.VariableRef); ok {
		existing, bound := ctx[ref.Name]
		switch {
		case bound:
			return compareValues(c.Op, value, existing)
		case c.Op == "==":
			ctx[ref.Name] = value
			return true, nil
		default:
			return false, fmt.Errorf("engine: %q compares against unbound variable $%s", c.Op, ref.Name)
		}
	}
	lit, ok := c.Expr.(dsl.Literal)
	if !ok {
		return false, fmt.Errorf("engine: unsupported comparison operand %T", c.Expr)
	}
	return compareValues(c.Op, value, normalizeLiteral(lit.Value, value))
}

// normalizeLiteral reads a string literal compared against a Severity
// value as a severity level name (case-insensitively, via
// ir.ParseSeverity), so the comparison runs on the ordered level.
func normalizeLiteral(lit, value any) any {
	if _, ok := value.(ir.Severity); ok {
		if s, ok := lit.(string); ok {
			if sev, err := ir.ParseSeverity(s); err == nil {
				return sev
			}
		}
	}
	return lit
}

func valuesEqual(a, b any) bool {
	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if aok && bok {
		return af == bf
	}
	as, aok := stringValue(a)
	bs, bok := stringValue(b)
	if aok && bok {
		return as == bs
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		return ab == bb
	}
	return a == b
}

func compareValues(op string, a, b any) (bool, error) {
	if af, aok := numericValue(a); aok {
		if bf, bok := numericValue(b); bok {
			return numCompare(op, af, bf), nil
		}
	}
	if as, aok := stringValue(a); aok {
		if bs, bok := stringValue(b); bok {
			return strCompare(op, as, bs)
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch op {
			case "==":
				return ab == bb, nil
			case "!=":
				return ab != bb, nil
			default:
				return false, fmt.Errorf("engine: operator %q is not defined for booleans", op)
			}
		}
	}
	return false, fmt.Errorf("engine: cannot compare %T and %T", a, b)
}

func numCompare(op string, a, b float64) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	default:
		return false
	}
}

func strCompare(op string, a, b string) (bool, error) {
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	default:
		return false, fmt.Errorf("engine: unknown operator %q", op)
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case ir.Severity:
		return float64(n), true
	case ir.Confidence:
		return float64(n), true
	case ir.CoveragePercentage:
		return float64(n), true
	case ir.LineNumber:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case ir.FlowId:
		return string(s), true
	default:
		return "", false
	}
}
