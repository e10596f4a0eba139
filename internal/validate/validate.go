// Package validate checks an IntermediateRepresentation against its schema
// and cross-reference invariants at the core's input boundary (spec.md
// §4.1). Validation is fatal: partial IRs are never accepted.
package validate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/registry"
)

// Kind discriminates why validation failed.
type Kind int

const (
	IncompatibleSchema Kind = iota
	InvalidConfidence
	InvalidCoverage
	InvalidLine
	EmptyName
	DanglingFlowReference
	PathOutsideProject
	CustomFactTypeUnknown
	CustomFactFieldInvalid
)

// Error is a single validation failure. Kind lets callers branch without
// string matching; Flow is set only for DanglingFlowReference.
type Error struct {
	Kind    Kind
	FactID  ir.FactId
	Flow    ir.FlowId
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validate: %s", e.Message)
	}
	return fmt.Sprintf("validate: fact %d failed (kind=%d)", e.FactID, e.Kind)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// SupportedSchema is the schema version this build of the core understands.
var SupportedSchema = ir.SchemaVersion{Major: 1, Minor: 0}

// Validate runs the two-pass algorithm from spec.md §4.1: per-fact schema
// checks, then a flow-closure pass verifying every consumed/sanitized
// FlowId is produced by some TaintSource in the same IR. Custom facts are
// dispatched to reg. logger may be nil (a no-op logger is used then).
func Validate(doc ir.IntermediateRepresentation, reg *registry.Registry, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if doc.Schema.Major != SupportedSchema.Major {
		return &Error{
			Kind:    IncompatibleSchema,
			Message: fmt.Sprintf("schema major %d incompatible with supported major %d", doc.Schema.Major, SupportedSchema.Major),
		}
	}
	if doc.Schema.Minor > SupportedSchema.Minor {
		logger.Warn("ir schema minor version ahead of supported",
			zap.Int("got_minor", doc.Schema.Minor), zap.Int("supported_minor", SupportedSchema.Minor))
	}

	produced := make(map[ir.FlowId]bool)

	for i := range doc.Facts {
		f := &doc.Facts[i]
		if err := validateFact(f, reg); err != nil {
			return err
		}
		if ts, ok := f.Type.(ir.TaintSource); ok {
			produced[ts.Flow] = true
		}
	}

	for i := range doc.Facts {
		f := &doc.Facts[i]
		switch t := f.Type.(type) {
		case ir.TaintSink:
			if !produced[t.ConsumesFlow] {
				return &Error{Kind: DanglingFlowReference, FactID: f.ID, Flow: t.ConsumesFlow,
					Message: fmt.Sprintf("fact %d consumes undefined flow %q", f.ID, t.ConsumesFlow)}
			}
		case ir.Sanitization:
			if !produced[t.SanitizesFlow] {
				return &Error{Kind: DanglingFlowReference, FactID: f.ID, Flow: t.SanitizesFlow,
					Message: fmt.Sprintf("fact %d sanitizes undefined flow %q", f.ID, t.SanitizesFlow)}
			}
		}
	}

	return nil
}

func validateFact(f *ir.Fact, reg *registry.Registry) error {
	if !f.Provenance.Confidence.Valid() {
		return &Error{Kind: InvalidConfidence, FactID: f.ID,
			Message: fmt.Sprintf("fact %d has out-of-range provenance confidence %v", f.ID, f.Provenance.Confidence)}
	}
	if f.Location != nil && !f.Location.Line.Valid() {
		return &Error{Kind: InvalidLine, FactID: f.ID,
			Message: fmt.Sprintf("fact %d has non-positive line number %d", f.ID, f.Location.Line)}
	}

	switch t := f.Type.(type) {
	case ir.TaintSource:
		if t.Variable == "" {
			return emptyName(f.ID, "TaintSource.Variable")
		}
		if !t.Confidence.Valid() {
			return invalidConfidence(f.ID)
		}
	case ir.TaintSink:
		if t.Function == "" {
			return emptyName(f.ID, "TaintSink.Function")
		}
	case ir.Sanitization:
		if t.Method == "" {
			return emptyName(f.ID, "Sanitization.Method")
		}
		if !t.Confidence.Valid() {
			return invalidConfidence(f.ID)
		}
	case ir.UnsafeCall:
		if t.Function == "" {
			return emptyName(f.ID, "UnsafeCall.Function")
		}
	case ir.Vulnerability:
		if !t.Confidence.Valid() {
			return invalidConfidence(f.ID)
		}
	case ir.Function:
		if t.Name == "" {
			return emptyName(f.ID, "Function.Name")
		}
	case ir.Variable:
		if t.Name == "" {
			return emptyName(f.ID, "Variable.Name")
		}
	case ir.Dependency:
		if t.Name == "" {
			return emptyName(f.ID, "Dependency.Name")
		}
	case ir.DependencyVulnerability:
		if t.DependencyName == "" {
			return emptyName(f.ID, "DependencyVulnerability.DependencyName")
		}
	case ir.License:
		if t.DependencyName == "" {
			return emptyName(f.ID, "License.DependencyName")
		}
	case ir.UncoveredLine:
		if !t.CoveragePercent.Valid() {
			return invalidCoverage(f.ID)
		}
	case ir.LowTestCoverage:
		if !t.Percent.Valid() {
			return invalidCoverage(f.ID)
		}
	case ir.CoverageStats:
		if !t.LinePercent.Valid() {
			return invalidCoverage(f.ID)
		}
	case ir.CustomFact:
		if reg == nil {
			return &Error{Kind: CustomFactTypeUnknown, FactID: f.ID,
				Message: fmt.Sprintf("fact %d: custom discriminant %q but no registry configured", f.ID, t.Discriminant)}
		}
		if err := reg.Validate(t); err != nil {
			return &Error{Kind: classifyCustomErr(err), FactID: f.ID,
				Message: fmt.Sprintf("fact %d: %v", f.ID, err), Wrapped: err}
		}
	}
	return nil
}

func classifyCustomErr(err error) Kind {
	if verr, ok := err.(*registry.ValidationError); ok && verr.Kind == registry.UnknownDiscriminant {
		return CustomFactTypeUnknown
	}
	return CustomFactFieldInvalid
}

func emptyName(id ir.FactId, field string) error {
	return &Error{Kind: EmptyName, FactID: id, Message: fmt.Sprintf("fact %d: %s must not be empty", id, field)}
}

func invalidConfidence(id ir.FactId) error {
	return &Error{Kind: InvalidConfidence, FactID: id, Message: fmt.Sprintf("fact %d has out-of-range confidence", id)}
}

func invalidCoverage(id ir.FactId) error {
	return &Error{Kind: InvalidCoverage, FactID: id, Message: fmt.Sprintf("fact %d has out-of-range coverage percentage", id)}
}
