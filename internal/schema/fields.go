// Package schema is the shared field-path table for the closed core fact
// union: it tells internal/dsl which field names are valid per fact kind
// (for static checking) and tells internal/engine how to read a field's
// runtime value off a concrete ir.Fact (for predicate evaluation). Keeping
// this table in one place means the DSL's static checks and the engine's
// runtime reads can never drift apart.
package schema

import "github.com/1homsi/govern/internal/ir"

// ValueKind is the comparable value shape a field exposes to the DSL.
type ValueKind int

const (
	KString ValueKind = iota
	KNumber
	KBool
	KSeverity
	KFlowID
)

// Field is one resolvable field path: its value kind, and an accessor that
// reads it off a Fact at evaluation time.
type Field struct {
	Kind ValueKind
	Get  func(f ir.Fact) (any, bool)
}

// common fields are available on every fact kind because they come from the
// Fact envelope (its SourceLocation), not the variant.
var common = map[string]Field{
	"file": {Kind: KString, Get: func(f ir.Fact) (any, bool) {
		if f.Location == nil {
			return nil, false
		}
		return f.Location.Path.String(), true
	}},
	"line": {Kind: KNumber, Get: func(f ir.Fact) (any, bool) {
		if f.Location == nil {
			return nil, false
		}
		return float64(f.Location.Line), true
	}},
}

func str(get func(ir.FactType) (string, bool)) Field {
	return Field{Kind: KString, Get: func(f ir.Fact) (any, bool) {
		v, ok := get(f.Type)
		return v, ok
	}}
}

func num(get func(ir.FactType) (float64, bool)) Field {
	return Field{Kind: KNumber, Get: func(f ir.Fact) (any, bool) {
		v, ok := get(f.Type)
		return v, ok
	}}
}

func boolean(get func(ir.FactType) (bool, bool)) Field {
	return Field{Kind: KBool, Get: func(f ir.Fact) (any, bool) {
		v, ok := get(f.Type)
		return v, ok
	}}
}

func severity(get func(ir.FactType) (ir.Severity, bool)) Field {
	return Field{Kind: KSeverity, Get: func(f ir.Fact) (any, bool) {
		v, ok := get(f.Type)
		return v, ok
	}}
}

func flow(get func(ir.FactType) (ir.FlowId, bool)) Field {
	return Field{Kind: KFlowID, Get: func(f ir.Fact) (any, bool) {
		v, ok := get(f.Type)
		return v, ok
	}}
}

// perKind maps each core FactKind to its declared field names.
var perKind = map[ir.FactKind]map[string]Field{
	ir.KindTaintSource: {
		"var":        str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.TaintSource); return v.Variable, ok }),
		"flow_id":    flow(func(t ir.FactType) (ir.FlowId, bool) { v, ok := t.(ir.TaintSource); return v.Flow, ok }),
		"source_kind": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.TaintSource); return v.SourceKind, ok }),
		"confidence": num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.TaintSource); return float64(v.Confidence), ok }),
	},
	ir.KindTaintSink: {
		"function":      str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.TaintSink); return v.Function, ok }),
		"consumes_flow": flow(func(t ir.FactType) (ir.FlowId, bool) { v, ok := t.(ir.TaintSink); return v.ConsumesFlow, ok }),
		"category":      str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.TaintSink); return string(v.Category), ok }),
		"severity":      severity(func(t ir.FactType) (ir.Severity, bool) { v, ok := t.(ir.TaintSink); return v.Severity, ok }),
	},
	ir.KindSanitization: {
		"method":         str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Sanitization); return v.Method, ok }),
		"sanitizes_flow": flow(func(t ir.FactType) (ir.FlowId, bool) { v, ok := t.(ir.Sanitization); return v.SanitizesFlow, ok }),
		"effective":      boolean(func(t ir.FactType) (bool, bool) { v, ok := t.(ir.Sanitization); return v.Effective, ok }),
		"confidence":     num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.Sanitization); return float64(v.Confidence), ok }),
	},
	ir.KindUnsafeCall: {
		"function": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.UnsafeCall); return v.Function, ok }),
		"reason":   str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.UnsafeCall); return v.Reason, ok }),
		"severity": severity(func(t ir.FactType) (ir.Severity, bool) { v, ok := t.(ir.UnsafeCall); return v.Severity, ok }),
	},
	ir.KindCryptographicOp: {
		"algorithm":      str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.CryptographicOperation); return string(v.Algorithm), ok }),
		"key_length":     num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.CryptographicOperation); return float64(v.KeyLengthBits), ok }),
		"secure":         boolean(func(t ir.FactType) (bool, bool) { v, ok := t.(ir.CryptographicOperation); return v.Secure, ok }),
		"recommendation": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.CryptographicOperation); return v.Recommendation, ok }),
	},
	ir.KindVulnerability: {
		"cwe":         str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Vulnerability); return v.CWE, ok }),
		"owasp":       str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Vulnerability); return v.OWASP, ok }),
		"severity":    severity(func(t ir.FactType) (ir.Severity, bool) { v, ok := t.(ir.Vulnerability); return v.Severity, ok }),
		"description": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Vulnerability); return v.Description, ok }),
		"confidence":  num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.Vulnerability); return float64(v.Confidence), ok }),
		"cvss": num(func(t ir.FactType) (float64, bool) {
			v, ok := t.(ir.Vulnerability)
			if !ok || v.CVSS == nil {
				return 0, false
			}
			return *v.CVSS, true
		}),
	},
	ir.KindFunction: {
		"name":                  str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Function); return v.Name, ok }),
		"visibility":            str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Function); return v.Visibility, ok }),
		"cyclomatic_complexity": num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.Function); return float64(v.CyclomaticComplexity), ok }),
		"cognitive_complexity":  num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.Function); return float64(v.CognitiveComplexity), ok }),
		"loc":                   num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.Function); return float64(v.LOC), ok }),
		"parameter_count":       num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.Function); return float64(v.ParameterCount), ok }),
	},
	ir.KindVariable: {
		"name":    str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Variable); return v.Name, ok }),
		"scope":   str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Variable); return v.Scope, ok }),
		"mutable": boolean(func(t ir.FactType) (bool, bool) { v, ok := t.(ir.Variable); return v.Mutable, ok }),
		"type":    str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Variable); return v.ValueType, ok }),
	},
	ir.KindCodeSmell: {
		"smell_kind": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.CodeSmell); return v.SmellKind, ok }),
		"severity":   severity(func(t ir.FactType) (ir.Severity, bool) { v, ok := t.(ir.CodeSmell); return v.Severity, ok }),
		"message":    str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.CodeSmell); return v.Message, ok }),
	},
	ir.KindComplexityViolation: {
		"metric_kind": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.ComplexityViolation); return v.MetricKind, ok }),
		"actual":      num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.ComplexityViolation); return v.Actual, ok }),
		"threshold":   num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.ComplexityViolation); return v.Threshold, ok }),
	},
	ir.KindDependency: {
		"name":      str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Dependency); return v.Name, ok }),
		"version":   str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Dependency); return v.Version.String(), ok }),
		"ecosystem": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Dependency); return v.Ecosystem, ok }),
		"scope":     str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.Dependency); return string(v.Scope), ok }),
		"direct":    boolean(func(t ir.FactType) (bool, bool) { v, ok := t.(ir.Dependency); return v.Direct, ok }),
	},
	ir.KindDependencyVulnerable: {
		"dependency_name": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.DependencyVulnerability); return v.DependencyName, ok }),
		"cve":             str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.DependencyVulnerability); return v.CVE, ok }),
		"severity":        severity(func(t ir.FactType) (ir.Severity, bool) { v, ok := t.(ir.DependencyVulnerability); return v.Severity, ok }),
		"cvss":            num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.DependencyVulnerability); return v.CVSS, ok }),
		"affected_range":  str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.DependencyVulnerability); return v.AffectedRange, ok }),
		"description":     str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.DependencyVulnerability); return v.Description, ok }),
	},
	ir.KindLicense: {
		"dependency_name": str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.License); return v.DependencyName, ok }),
		"license_kind":    str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.License); return v.LicenseKind, ok }),
		"compatible":      boolean(func(t ir.FactType) (bool, bool) { v, ok := t.(ir.License); return v.Compatible, ok }),
		"spdx_id":         str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.License); return v.SPDXId, ok }),
	},
	ir.KindUncoveredLine: {
		"coverage": num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.UncoveredLine); return float64(v.CoveragePercent), ok }),
	},
	ir.KindLowTestCoverage: {
		"file":            str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.LowTestCoverage); return v.File, ok }),
		"percentage":      num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.LowTestCoverage); return float64(v.Percent), ok }),
		"total_lines":     num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.LowTestCoverage); return float64(v.TotalLines), ok }),
		"uncovered_lines": num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.LowTestCoverage); return float64(v.UncoveredLines), ok }),
	},
	ir.KindCoverageStats: {
		"scope":        str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.CoverageStats); return string(v.Scope), ok }),
		"path":         str(func(t ir.FactType) (string, bool) { v, ok := t.(ir.CoverageStats); return v.Path, ok }),
		"line_percent": num(func(t ir.FactType) (float64, bool) { v, ok := t.(ir.CoverageStats); return float64(v.LinePercent), ok }),
	},
}

// Lookup resolves a field name for a given fact kind. Per-kind fields take
// priority over the common location pseudo-fields so a variant with its own
// "file" field (LowTestCoverage) shadows the location-derived one.
func Lookup(kind ir.FactKind, field string) (Field, bool) {
	if m, ok := perKind[kind]; ok {
		if f, ok := m[field]; ok {
			return f, true
		}
	}
	if f, ok := common[field]; ok {
		return f, true
	}
	return Field{}, false
}

// FieldNames lists every field name known for kind, for did-you-mean
// suggestion building.
func FieldNames(kind ir.FactKind) []string {
	var out []string
	for name := range perKind[kind] {
		out = append(out, name)
	}
	for name := range common {
		out = append(out, name)
	}
	return out
}
