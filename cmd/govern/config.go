package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/1homsi/govern/internal/gate"
	"github.com/1homsi/govern/internal/ir"
)

// rawGateConfig mirrors a gates.yaml file's structure before its string
// enums (metric kind, source, severity) are resolved against the closed
// vocabularies gate.MetricKind/gate.Source/ir.Severity define. Unknown
// names fail loudly rather than silently falling back to a zero value.
type rawGateConfig struct {
	Gates []rawGate `yaml:"gates"`
}

type rawGate struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description"`
	Metric         string        `yaml:"metric"`       // count | avg | sum | min | max | percentile | custom
	Source         string        `yaml:"source"`       // findings | facts; optional for custom
	FactKind       string        `yaml:"fact_kind"`    // required when source: facts
	Field          string        `yaml:"field"`
	MinSeverity    string        `yaml:"min_severity"` // optional, findings only
	Predicate      *rawPredicate `yaml:"predicate"`    // optional fact/finding filter
	Percentile     float64       `yaml:"percentile"`   // required when metric: percentile
	AggregatorName string        `yaml:"aggregator"`   // required when metric: custom
	Op             string        `yaml:"op"`           // <, <=, >, >=, ==, !=
	Value          float64       `yaml:"value"`
	Severity       string        `yaml:"severity"`
	Enabled        *bool         `yaml:"enabled"` // defaults to true when omitted
}

// rawPredicate mirrors gate.FieldPredicate, with its literal left as an
// untyped YAML scalar (string, float64, or bool) until resolveGate reads it.
type rawPredicate struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

// LoadGates reads a gates.yaml file and resolves it into the typed
// gate.Gate values the Quality Gate Evaluator consumes.
func LoadGates(path string) ([]gate.Gate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gate config %q: %w", path, err)
	}
	var raw rawGateConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing gate config %q: %w", path, err)
	}

	gates := make([]gate.Gate, 0, len(raw.Gates))
	for _, rg := range raw.Gates {
		g, err := resolveGate(rg)
		if err != nil {
			return nil, fmt.Errorf("gate %q: %w", rg.Name, err)
		}
		gates = append(gates, g)
	}
	return gates, nil
}

func resolveGate(rg rawGate) (gate.Gate, error) {
	metricKind, err := resolveMetricKind(rg.Metric)
	if err != nil {
		return gate.Gate{}, err
	}
	var source gate.Source
	if metricKind != gate.Custom || rg.Source != "" {
		source, err = resolveSource(rg.Source)
		if err != nil {
			return gate.Gate{}, err
		}
	}
	sev, err := ir.ParseSeverity(rg.Severity)
	if err != nil {
		return gate.Gate{}, err
	}

	query := gate.MetricQuery{
		Kind:           metricKind,
		Source:         source,
		FactKind:       ir.FactKind(rg.FactKind),
		Field:          rg.Field,
		Percentile:     rg.Percentile,
		AggregatorName: rg.AggregatorName,
	}
	if rg.MinSeverity != "" {
		minSev, err := ir.ParseSeverity(rg.MinSeverity)
		if err != nil {
			return gate.Gate{}, err
		}
		query.MinSeverity = &minSev
	}
	if rg.Predicate != nil {
		pred, err := resolvePredicate(*rg.Predicate)
		if err != nil {
			return gate.Gate{}, err
		}
		query.Predicate = &pred
	}

	enabled := true
	if rg.Enabled != nil {
		enabled = *rg.Enabled
	}

	return gate.Gate{
		Name:        rg.Name,
		Description: rg.Description,
		Metric:      query,
		Threshold:   gate.Threshold{Op: rg.Op, Value: rg.Value},
		Severity:    sev,
		Enabled:     enabled,
	}, nil
}

// resolvePredicate normalizes a YAML-decoded literal into the string/
// float64/bool trichotomy gate.FieldPredicate expects: yaml.v3 decodes an
// untyped integer scalar as int, not float64, so that case is converted
// here rather than pushed onto gate.FieldPredicate's consumers.
func resolvePredicate(rp rawPredicate) (gate.FieldPredicate, error) {
	value := rp.Value
	if n, ok := value.(int); ok {
		value = float64(n)
	}
	switch value.(type) {
	case string, float64, bool:
	default:
		return gate.FieldPredicate{}, fmt.Errorf("predicate value must be a string, number, or bool, got %T", rp.Value)
	}
	return gate.FieldPredicate{Field: rp.Field, Op: rp.Op, Value: value}, nil
}

func resolveMetricKind(s string) (gate.MetricKind, error) {
	switch s {
	case "count":
		return gate.Count, nil
	case "avg":
		return gate.Avg, nil
	case "sum":
		return gate.Sum, nil
	case "min":
		return gate.Min, nil
	case "max":
		return gate.Max, nil
	case "percentile":
		return gate.Percentile, nil
	case "custom":
		return gate.Custom, nil
	default:
		return 0, fmt.Errorf("unknown metric kind %q", s)
	}
}

func resolveSource(s string) (gate.Source, error) {
	switch s {
	case "findings":
		return gate.SourceFindings, nil
	case "facts":
		return gate.SourceFacts, nil
	default:
		return 0, fmt.Errorf("unknown metric source %q", s)
	}
}
