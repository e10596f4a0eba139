// Package gate implements the Quality Gate Evaluator (spec.md §4.6): a
// pure reduction of stored facts and rule findings to a scalar, compared
// against a threshold, with severity mapped to a process exit code.
package gate

import (
	"fmt"
	"math"
	"sort"

	"github.com/1homsi/govern/internal/engine"
	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/registry"
	"github.com/1homsi/govern/internal/schema"
	"github.com/1homsi/govern/internal/store"
)

// MetricKind closes the enumeration of scalar reductions a gate may query.
type MetricKind int

const (
	Count MetricKind = iota
	Avg
	Sum
	Min
	Max
	Percentile
	Custom
)

// Source picks what a MetricQuery reduces over.
type Source int

const (
	SourceFindings Source = iota
	SourceFacts
)

// MetricQuery names one scalar to compute, per spec.md §4.6. Field is a
// field path resolved the same way internal/dsl resolves one (via
// internal/schema for core fact kinds); for SourceFindings queries the
// only supported Field values are "" or "count" (each finding counts as 1)
// and "severity". Count never requires Field: it counts whatever matches
// FactKind/Predicate (or MinSeverity, for SourceFindings).
type MetricQuery struct {
	Kind           MetricKind
	Source         Source
	FactKind       ir.FactKind // used when Source == SourceFacts
	Field          string
	MinSeverity    *ir.Severity    // optional filter, SourceFindings only
	Predicate      *FieldPredicate // optional filter, either Source
	Percentile     float64         // used when Kind == Percentile, in [0, 100]
	AggregatorName string          // used when Kind == Custom
}

// FieldPredicate filters the facts or findings a MetricQuery reduces over
// before the reduction itself runs, per spec.md §4.6's
// Count{kind, predicate} shape (e.g. Count{kind=DependencyVulnerability,
// predicate: severity == "Critical"}). Field is resolved via
// internal/schema for SourceFacts queries, exactly as internal/dsl
// resolves a rule condition's field.
type FieldPredicate struct {
	Field string
	Op    string // "<", "<=", ">", ">=", "==", "!="
	Value any    // string, float64, or bool literal
}

// Threshold compares a computed metric value against a fixed bound.
// Equality comparisons use a small float epsilon so IEEE-754 rounding in
// the reduction never flips a gate that should pass.
type Threshold struct {
	Op    string // "<", "<=", ">", ">=", "==", "!="
	Value float64
}

const epsilon = 1e-9

// Compare reports whether value satisfies the threshold.
func (t Threshold) Compare(value float64) (bool, error) {
	switch t.Op {
	case "<":
		return value < t.Value, nil
	case "<=":
		return value <= t.Value, nil
	case ">":
		return value > t.Value, nil
	case ">=":
		return value >= t.Value, nil
	case "==":
		return math.Abs(value-t.Value) <= epsilon, nil
	case "!=":
		return math.Abs(value-t.Value) > epsilon, nil
	default:
		return false, fmt.Errorf("gate: unknown threshold operator %q", t.Op)
	}
}

// Gate is one named quality check: a metric, a threshold, and the severity
// to report if it fails. A disabled Gate always passes without being
// computed (spec.md §9, Open Question: disabled gates short-circuit rather
// than being silently omitted from the report).
type Gate struct {
	Name        string
	Description string
	Metric      MetricQuery
	Threshold   Threshold
	Severity    ir.Severity
	Enabled     bool
}

// Result is one gate's outcome: its computed scalar alongside the
// threshold it was compared against, per spec.md §3.4's
// (actual, expected, operator) triple.
type Result struct {
	Name     string
	Value    float64
	Expected float64
	Operator string
	Passed   bool
	Severity ir.Severity
	Skipped  bool
}

// Report is the outcome of evaluating every gate in a run.
type Report struct {
	Results  []Result
	ExitCode int
	Passed   bool
}

// Evaluate computes g's metric and compares it to its threshold.
func Evaluate(g Gate, st *store.Store, findings []engine.Finding, reg *registry.Registry) (Result, error) {
	if !g.Enabled {
		return Result{Name: g.Name, Expected: g.Threshold.Value, Operator: g.Threshold.Op, Passed: true, Skipped: true}, nil
	}
	value, err := compute(g.Metric, st, findings, reg)
	if err != nil {
		return Result{}, fmt.Errorf("gate %q: %w", g.Name, err)
	}
	passed, err := g.Threshold.Compare(value)
	if err != nil {
		return Result{}, fmt.Errorf("gate %q: %w", g.Name, err)
	}
	return Result{
		Name:     g.Name,
		Value:    value,
		Expected: g.Threshold.Value,
		Operator: g.Threshold.Op,
		Passed:   passed,
		Severity: g.Severity,
	}, nil
}

// EvaluateAll evaluates every gate and rolls the failures up into a single
// exit code: the highest ir.Severity.ExitCode() among failed gates, or 0
// if every gate passed.
func EvaluateAll(gates []Gate, st *store.Store, findings []engine.Finding, reg *registry.Registry) (Report, error) {
	report := Report{Passed: true}
	for _, g := range gates {
		res, err := Evaluate(g, st, findings, reg)
		if err != nil {
			return Report{}, err
		}
		report.Results = append(report.Results, res)
		if !res.Passed && !res.Skipped {
			report.Passed = false
			if code := res.Severity.ExitCode(); code > report.ExitCode {
				report.ExitCode = code
			}
		}
	}
	return report, nil
}

func compute(q MetricQuery, st *store.Store, findings []engine.Finding, reg *registry.Registry) (float64, error) {
	if q.Kind == Custom {
		if reg == nil {
			return 0, fmt.Errorf("custom metric %q requires a registry", q.AggregatorName)
		}
		fn, ok := reg.Aggregator(q.AggregatorName)
		if !ok {
			return 0, fmt.Errorf("unknown custom metric aggregator %q", q.AggregatorName)
		}
		items := make([]registry.ScoredItem, 0, len(findings))
		for _, f := range findings {
			items = append(items, registry.ScoredItem{Severity: f.Severity})
		}
		return fn(st, items)
	}

	values, err := collectValues(q, st, findings)
	if err != nil {
		return 0, err
	}

	switch q.Kind {
	case Count:
		return float64(len(values)), nil
	case Sum:
		return sum(values), nil
	case Avg:
		if len(values) == 0 {
			return 0, nil
		}
		return sum(values) / float64(len(values)), nil
	case Min:
		if len(values) == 0 {
			return 0, fmt.Errorf("min over an empty data set")
		}
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case Max:
		if len(values) == 0 {
			return 0, fmt.Errorf("max over an empty data set")
		}
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	case Percentile:
		return percentile(values, q.Percentile)
	default:
		return 0, fmt.Errorf("gate: unknown metric kind %d", q.Kind)
	}
}

func collectValues(q MetricQuery, st *store.Store, findings []engine.Finding) ([]float64, error) {
	switch q.Source {
	case SourceFindings:
		var values []float64
		for _, f := range findings {
			if q.MinSeverity != nil && f.Severity < *q.MinSeverity {
				continue
			}
			if q.Predicate != nil {
				raw, ok := findingFieldValue(f, q.Predicate.Field)
				if !ok {
					continue
				}
				matched, err := predicateMatches(q.Predicate, raw)
				if err != nil {
					return nil, err
				}
				if !matched {
					continue
				}
			}
			switch q.Field {
			case "", "count":
				values = append(values, 1)
			case "severity":
				values = append(values, float64(f.Severity))
			default:
				return nil, fmt.Errorf("findings have no numeric field %q", q.Field)
			}
		}
		return values, nil

	case SourceFacts:
		// Count never needs a reduction field, only FactKind/Predicate:
		// spec.md §4.6's Count{kind, predicate} shape has no Field at all.
		needsField := q.Kind != Count
		var mainField schema.Field
		if needsField {
			f, ok := schema.Lookup(q.FactKind, q.Field)
			if !ok {
				return nil, fmt.Errorf("fact type %s has no field %q", q.FactKind, q.Field)
			}
			mainField = f
		}
		var predField schema.Field
		if q.Predicate != nil {
			f, ok := schema.Lookup(q.FactKind, q.Predicate.Field)
			if !ok {
				return nil, fmt.Errorf("fact type %s has no field %q", q.FactKind, q.Predicate.Field)
			}
			predField = f
		}

		var values []float64
		for _, id := range st.IterateByKind(q.FactKind) {
			fact, ok := st.Fact(id)
			if !ok {
				continue
			}
			if q.Predicate != nil {
				raw, ok := predField.Get(fact)
				if !ok {
					continue
				}
				matched, err := predicateMatches(q.Predicate, raw)
				if err != nil {
					return nil, err
				}
				if !matched {
					continue
				}
			}
			if !needsField {
				values = append(values, 1)
				continue
			}
			raw, ok := mainField.Get(fact)
			if !ok {
				continue
			}
			v, ok := toFloat(raw)
			if !ok {
				return nil, fmt.Errorf("field %q on %s is not numeric", q.Field, q.FactKind)
			}
			values = append(values, v)
		}
		return values, nil

	default:
		return nil, fmt.Errorf("gate: unknown metric source %d", q.Source)
	}
}

// findingFieldValue resolves the small set of scalar fields a predicate can
// filter Findings on: Finding carries no schema.Field table of its own,
// since it is the engine's output, not a stored fact.
func findingFieldValue(f engine.Finding, field string) (any, bool) {
	switch field {
	case "severity":
		return f.Severity, true
	case "rule_id", "rule":
		return f.RuleID, true
	default:
		return nil, false
	}
}

// predicateMatches evaluates pred against a field's runtime value. The
// comparison is dispatched on the predicate literal's Go type, the same
// string/float64/bool trichotomy internal/dsl literals use.
func predicateMatches(pred *FieldPredicate, raw any) (bool, error) {
	if pred == nil {
		return true, nil
	}
	switch want := pred.Value.(type) {
	case string:
		got, ok := predicateString(raw)
		if !ok {
			return false, fmt.Errorf("predicate field %q does not compare against a string", pred.Field)
		}
		return compareStrings(pred.Op, got, want)
	case float64:
		got, ok := toFloat(raw)
		if !ok {
			return false, fmt.Errorf("predicate field %q does not compare against a number", pred.Field)
		}
		return compareFloats(pred.Op, got, want)
	case bool:
		got, ok := raw.(bool)
		if !ok {
			return false, fmt.Errorf("predicate field %q does not compare against a bool", pred.Field)
		}
		return compareBools(pred.Op, got, want)
	default:
		return false, fmt.Errorf("gate: unsupported predicate literal %T", pred.Value)
	}
}

func predicateString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case ir.Severity:
		return v.String(), true
	case ir.FlowId:
		return string(v), true
	default:
		return "", false
	}
}

func compareStrings(op, got, want string) (bool, error) {
	switch op {
	case "==":
		return got == want, nil
	case "!=":
		return got != want, nil
	case "<":
		return got < want, nil
	case "<=":
		return got <= want, nil
	case ">":
		return got > want, nil
	case ">=":
		return got >= want, nil
	default:
		return false, fmt.Errorf("gate: unknown predicate operator %q", op)
	}
}

func compareFloats(op string, got, want float64) (bool, error) {
	switch op {
	case "==":
		return math.Abs(got-want) <= epsilon, nil
	case "!=":
		return math.Abs(got-want) > epsilon, nil
	case "<":
		return got < want, nil
	case "<=":
		return got <= want, nil
	case ">":
		return got > want, nil
	case ">=":
		return got >= want, nil
	default:
		return false, fmt.Errorf("gate: unknown predicate operator %q", op)
	}
}

func compareBools(op string, got, want bool) (bool, error) {
	switch op {
	case "==":
		return got == want, nil
	case "!=":
		return got != want, nil
	default:
		return false, fmt.Errorf("gate: operator %q is not defined for booleans", op)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case ir.Severity:
		return float64(n), true
	case ir.Confidence:
		return float64(n), true
	case ir.CoveragePercentage:
		return float64(n), true
	default:
		return 0, false
	}
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// percentile uses linear interpolation between closest ranks (the common
// "R-7" method), matching what most coverage/metrics tooling reports.
func percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("percentile over an empty data set")
	}
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("percentile %v is out of range [0, 100]", p)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0], nil
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, nil
}
