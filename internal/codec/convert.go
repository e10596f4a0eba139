package codec

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/1homsi/govern/internal/ir"
)

func encodeFact(f ir.Fact, in *interner) (wireFact, error) {
	wf := wireFact{
		ID:               uint64(f.ID),
		Kind:             string(f.Kind()),
		PathIndex:        -1,
		Extractor:        f.Provenance.Extractor.String(),
		ExtractorCustom:  f.Provenance.Extractor.IsCustom(),
		ExtractorVersion: f.Provenance.ExtractorVersion,
		Confidence:       float64(f.Provenance.Confidence),
		ExtractedAtNs:    f.ExtractedAt.UnixNano(),
		Tags:             f.Tags,
		Metadata:         f.Metadata,
	}
	if f.Location != nil {
		wf.PathIndex = in.intern(f.Location.Path.String())
		wf.Line = int32(f.Location.Line)
		if f.Location.Column != nil {
			wf.Column = int32(*f.Location.Column)
		}
		if f.Location.EndLine != nil {
			wf.EndLine = int32(*f.Location.EndLine)
		}
		if f.Location.EndColumn != nil {
			wf.EndColumn = int32(*f.Location.EndColumn)
		}
	}

	payload, err := encodePayload(f.Type)
	if err != nil {
		return wireFact{}, err
	}
	wf.Payload = payload
	return wf, nil
}

func encodePayload(t ir.FactType) (cbor.RawMessage, error) {
	var v any
	switch ft := t.(type) {
	case ir.TaintSource:
		v = wireTaintSource{Variable: ft.Variable, Flow: string(ft.Flow), SourceKind: ft.SourceKind, Confidence: float64(ft.Confidence)}
	case ir.TaintSink:
		v = wireTaintSink{Function: ft.Function, ConsumesFlow: string(ft.ConsumesFlow), Category: string(ft.Category), Severity: int(ft.Severity)}
	case ir.Sanitization:
		v = wireSanitization{Method: ft.Method, SanitizesFlow: string(ft.SanitizesFlow), Effective: ft.Effective, Confidence: float64(ft.Confidence)}
	case ir.UnsafeCall:
		v = wireUnsafeCall{Function: ft.Function, Reason: ft.Reason, Severity: int(ft.Severity)}
	case ir.CryptographicOperation:
		v = wireCryptographicOperation{Algorithm: string(ft.Algorithm), KeyLengthBits: ft.KeyLengthBits, Secure: ft.Secure, Recommendation: ft.Recommendation}
	case ir.Vulnerability:
		v = wireVulnerability{CWE: ft.CWE, OWASP: ft.OWASP, Severity: int(ft.Severity), CVSS: ft.CVSS, Description: ft.Description, Confidence: float64(ft.Confidence)}
	case ir.Function:
		v = wireFunction{Name: ft.Name, Visibility: ft.Visibility, CyclomaticComplexity: ft.CyclomaticComplexity, CognitiveComplexity: ft.CognitiveComplexity, LOC: ft.LOC, ParameterCount: ft.ParameterCount}
	case ir.Variable:
		v = wireVariable{Name: ft.Name, Scope: ft.Scope, Mutable: ft.Mutable, ValueType: ft.ValueType}
	case ir.CodeSmell:
		v = wireCodeSmell{SmellKind: ft.SmellKind, Severity: int(ft.Severity), Message: ft.Message}
	case ir.ComplexityViolation:
		v = wireComplexityViolation{MetricKind: ft.MetricKind, Actual: ft.Actual, Threshold: ft.Threshold}
	case ir.Dependency:
		v = wireDependency{Name: ft.Name, Version: ft.Version.String(), Ecosystem: ft.Ecosystem, Scope: string(ft.Scope), Direct: ft.Direct}
	case ir.DependencyVulnerability:
		var patched *string
		if ft.PatchedVersion != nil {
			s := ft.PatchedVersion.String()
			patched = &s
		}
		v = wireDependencyVulnerability{DependencyName: ft.DependencyName, CVE: ft.CVE, Severity: int(ft.Severity), CVSS: ft.CVSS, AffectedRange: ft.AffectedRange, PatchedVersion: patched, Description: ft.Description}
	case ir.License:
		v = wireLicense{DependencyName: ft.DependencyName, LicenseKind: ft.LicenseKind, Compatible: ft.Compatible, SPDXId: ft.SPDXId}
	case ir.UncoveredLine:
		var branch *float64
		if ft.BranchPercent != nil {
			b := float64(*ft.BranchPercent)
			branch = &b
		}
		v = wireUncoveredLine{CoveragePercent: float64(ft.CoveragePercent), BranchPercent: branch}
	case ir.LowTestCoverage:
		v = wireLowTestCoverage{File: ft.File, Percent: float64(ft.Percent), TotalLines: ft.TotalLines, UncoveredLines: ft.UncoveredLines}
	case ir.CoverageStats:
		var branch, fn *float64
		if ft.BranchPercent != nil {
			b := float64(*ft.BranchPercent)
			branch = &b
		}
		if ft.FunctionPercent != nil {
			f := float64(*ft.FunctionPercent)
			fn = &f
		}
		v = wireCoverageStats{Scope: string(ft.Scope), Path: ft.Path, LinePercent: float64(ft.LinePercent), BranchPercent: branch, FunctionPercent: fn}
	case ir.CustomFact:
		v = wireCustomFact{Discriminant: ft.Discriminant, Fields: ft.Fields}
	default:
		return nil, fmt.Errorf("codec: unknown FactType %T", t)
	}
	return encMode.Marshal(v)
}

func decodeFact(wf wireFact, paths []string, projectRoot string) (ir.Fact, error) {
	ft, err := decodePayload(ir.FactKind(wf.Kind), wf.Payload)
	if err != nil {
		return ir.Fact{}, fmt.Errorf("codec: decoding fact %d payload: %w", wf.ID, err)
	}

	f := ir.Fact{
		ID:   ir.FactId(wf.ID),
		Type: ft,
		Provenance: ir.Provenance{
			Extractor:        extractorFromWire(wf.Extractor, wf.ExtractorCustom),
			ExtractorVersion: wf.ExtractorVersion,
			Confidence:       ir.Confidence(wf.Confidence),
		},
		ExtractedAt: time.Unix(0, wf.ExtractedAtNs).UTC(),
		Tags:        wf.Tags,
		Metadata:    wf.Metadata,
	}

	if wf.PathIndex >= 0 {
		if int(wf.PathIndex) >= len(paths) {
			return ir.Fact{}, fmt.Errorf("codec: fact %d references out-of-range path index %d", wf.ID, wf.PathIndex)
		}
		p, err := ir.NewProjectPath(paths[wf.PathIndex], projectRoot)
		if err != nil {
			return ir.Fact{}, fmt.Errorf("codec: fact %d location: %w", wf.ID, err)
		}
		loc := &ir.SourceLocation{Path: p, Line: ir.LineNumber(wf.Line)}
		if wf.Column != 0 {
			c := ir.ColumnNumber(wf.Column)
			loc.Column = &c
		}
		if wf.EndLine != 0 {
			l := ir.LineNumber(wf.EndLine)
			loc.EndLine = &l
		}
		if wf.EndColumn != 0 {
			c := ir.ColumnNumber(wf.EndColumn)
			loc.EndColumn = &c
		}
		f.Location = loc
	}
	return f, nil
}

func extractorFromWire(name string, custom bool) ir.ExtractorId {
	if custom {
		return ir.CustomExtractorId(name)
	}
	return ir.NewExtractorId(name)
}

func decodePayload(kind ir.FactKind, raw cbor.RawMessage) (ir.FactType, error) {
	switch kind {
	case ir.KindTaintSource:
		var w wireTaintSource
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.TaintSource{Variable: w.Variable, Flow: ir.FlowId(w.Flow), SourceKind: w.SourceKind, Confidence: ir.Confidence(w.Confidence)}, nil

	case ir.KindTaintSink:
		var w wireTaintSink
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.TaintSink{Function: w.Function, ConsumesFlow: ir.FlowId(w.ConsumesFlow), Category: ir.SinkCategory(w.Category), Severity: ir.Severity(w.Severity)}, nil

	case ir.KindSanitization:
		var w wireSanitization
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.Sanitization{Method: w.Method, SanitizesFlow: ir.FlowId(w.SanitizesFlow), Effective: w.Effective, Confidence: ir.Confidence(w.Confidence)}, nil

	case ir.KindUnsafeCall:
		var w wireUnsafeCall
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.UnsafeCall{Function: w.Function, Reason: w.Reason, Severity: ir.Severity(w.Severity)}, nil

	case ir.KindCryptographicOp:
		var w wireCryptographicOperation
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.CryptographicOperation{Algorithm: ir.CryptoAlgorithm(w.Algorithm), KeyLengthBits: w.KeyLengthBits, Secure: w.Secure, Recommendation: w.Recommendation}, nil

	case ir.KindVulnerability:
		var w wireVulnerability
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.Vulnerability{CWE: w.CWE, OWASP: w.OWASP, Severity: ir.Severity(w.Severity), CVSS: w.CVSS, Description: w.Description, Confidence: ir.Confidence(w.Confidence)}, nil

	case ir.KindFunction:
		var w wireFunction
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.Function{Name: w.Name, Visibility: w.Visibility, CyclomaticComplexity: w.CyclomaticComplexity, CognitiveComplexity: w.CognitiveComplexity, LOC: w.LOC, ParameterCount: w.ParameterCount}, nil

	case ir.KindVariable:
		var w wireVariable
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.Variable{Name: w.Name, Scope: w.Scope, Mutable: w.Mutable, ValueType: w.ValueType}, nil

	case ir.KindCodeSmell:
		var w wireCodeSmell
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.CodeSmell{SmellKind: w.SmellKind, Severity: ir.Severity(w.Severity), Message: w.Message}, nil

	case ir.KindComplexityViolation:
		var w wireComplexityViolation
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.ComplexityViolation{MetricKind: w.MetricKind, Actual: w.Actual, Threshold: w.Threshold}, nil

	case ir.KindDependency:
		var w wireDependency
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		ver, err := parseSemVer(w.Version)
		if err != nil {
			return nil, err
		}
		return ir.Dependency{Name: w.Name, Version: ver, Ecosystem: w.Ecosystem, Scope: ir.DependencyScope(w.Scope), Direct: w.Direct}, nil

	case ir.KindDependencyVulnerable:
		var w wireDependencyVulnerability
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		var patched *ir.SemanticVersion
		if w.PatchedVersion != nil {
			v, err := parseSemVer(*w.PatchedVersion)
			if err != nil {
				return nil, err
			}
			patched = &v
		}
		return ir.DependencyVulnerability{DependencyName: w.DependencyName, CVE: w.CVE, Severity: ir.Severity(w.Severity), CVSS: w.CVSS, AffectedRange: w.AffectedRange, PatchedVersion: patched, Description: w.Description}, nil

	case ir.KindLicense:
		var w wireLicense
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.License{DependencyName: w.DependencyName, LicenseKind: w.LicenseKind, Compatible: w.Compatible, SPDXId: w.SPDXId}, nil

	case ir.KindUncoveredLine:
		var w wireUncoveredLine
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		var branch *ir.CoveragePercentage
		if w.BranchPercent != nil {
			b := ir.CoveragePercentage(*w.BranchPercent)
			branch = &b
		}
		return ir.UncoveredLine{CoveragePercent: ir.CoveragePercentage(w.CoveragePercent), BranchPercent: branch}, nil

	case ir.KindLowTestCoverage:
		var w wireLowTestCoverage
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.LowTestCoverage{File: w.File, Percent: ir.CoveragePercentage(w.Percent), TotalLines: w.TotalLines, UncoveredLines: w.UncoveredLines}, nil

	case ir.KindCoverageStats:
		var w wireCoverageStats
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		var branch, fn *ir.CoveragePercentage
		if w.BranchPercent != nil {
			b := ir.CoveragePercentage(*w.BranchPercent)
			branch = &b
		}
		if w.FunctionPercent != nil {
			f := ir.CoveragePercentage(*w.FunctionPercent)
			fn = &f
		}
		return ir.CoverageStats{Scope: ir.CoverageScope(w.Scope), Path: w.Path, LinePercent: ir.CoveragePercentage(w.LinePercent), BranchPercent: branch, FunctionPercent: fn}, nil

	case ir.KindCustom:
		var w wireCustomFact
		if err := decMode.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ir.CustomFact{Discriminant: w.Discriminant, Fields: w.Fields}, nil

	default:
		return nil, fmt.Errorf("codec: unknown fact kind %q", kind)
	}
}

// parseSemVer parses the canonical "major.minor.patch[-pre][+build]" form
// written by ir.SemanticVersion.String.
func parseSemVer(s string) (ir.SemanticVersion, error) {
	var v ir.SemanticVersion
	rest := s
	if i := indexByte(rest, '+'); i >= 0 {
		v.Build = rest[i+1:]
		rest = rest[:i]
	}
	if i := indexByte(rest, '-'); i >= 0 {
		v.Pre = rest[i+1:]
		rest = rest[:i]
	}
	n, err := fmt.Sscanf(rest, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	if err != nil || n != 3 {
		return ir.SemanticVersion{}, fmt.Errorf("codec: malformed semantic version %q", s)
	}
	return v, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
