package dsl

import (
	"fmt"

	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/registry"
	"github.com/1homsi/govern/internal/schema"
)

// resolve walks r's condition tree and checks every FactExists pattern's
// discriminant and field paths against the closed core-kind set plus reg's
// registered Custom discriminants. reg may be nil if no custom fact types
// are in play; any Custom pattern then fails with UnknownFactType.
func resolve(r *Rule, reg *registry.Registry) error {
	return resolveCondition(r.ID, r.Condition, reg)
}

func resolveCondition(ruleID string, c Condition, reg *registry.Registry) error {
	switch v := c.(type) {
	case *FactExists:
		return resolveFactExists(ruleID, v, reg)
	case *And:
		for _, op := range v.Operands {
			if err := resolveCondition(ruleID, op, reg); err != nil {
				return err
			}
		}
	case *Or:
		for _, op := range v.Operands {
			if err := resolveCondition(ruleID, op, reg); err != nil {
				return err
			}
		}
	case *Not:
		return resolveCondition(ruleID, v.Operand, reg)
	}
	return nil
}

func resolveFactExists(ruleID string, fe *FactExists, reg *registry.Registry) error {
	if fe.Kind != ir.KindCustom {
		for _, b := range fe.Bindings {
			field, ok := schema.Lookup(fe.Kind, b.Field)
			if !ok {
				return &Error{
					Kind: UnknownField, RuleID: ruleID, Subject: b.Field,
					Suggestion: suggest(b.Field, schema.FieldNames(fe.Kind)),
					Message:    fmt.Sprintf("fact type %s has no field %q", fe.Kind, b.Field),
				}
			}
			if lit, ok := literalOf(b.Expr); ok && !valueKindAccepts(field.Kind, lit) {
				return &Error{
					Kind: TypeMismatch, RuleID: ruleID, Subject: b.Field,
					Message: fmt.Sprintf("field %q on fact type %s is %s, cannot compare against a %T literal", b.Field, fe.Kind, valueKindName(field.Kind), lit),
				}
			}
		}
		return nil
	}

	known := make([]string, 0, len(ir.CoreKinds))
	for _, k := range ir.CoreKinds {
		known = append(known, string(k))
	}
	if reg == nil {
		return &Error{
			Kind: UnknownFactType, RuleID: ruleID, Subject: fe.Discriminant,
			Suggestion: suggest(fe.Discriminant, known),
			Message:    fmt.Sprintf("unknown fact type %q (no custom fact registry configured)", fe.Discriminant),
		}
	}
	fts, ok := reg.Schema(fe.Discriminant)
	if !ok {
		return &Error{
			Kind: UnknownFactType, RuleID: ruleID, Subject: fe.Discriminant,
			Suggestion: suggest(fe.Discriminant, append(known, reg.Discriminants()...)),
			Message:    fmt.Sprintf("unknown fact type %q", fe.Discriminant),
		}
	}
	names := make([]string, 0, len(fts.Fields))
	for name := range fts.Fields {
		names = append(names, name)
	}
	for _, b := range fe.Bindings {
		fieldSchema, ok := fts.Fields[b.Field]
		if !ok {
			return &Error{
				Kind: UnknownField, RuleID: ruleID, Subject: b.Field,
				Suggestion: suggest(b.Field, names),
				Message:    fmt.Sprintf("fact type %q has no field %q", fe.Discriminant, b.Field),
			}
		}
		if lit, ok := literalOf(b.Expr); ok && !fieldTypeAccepts(fieldSchema.Type, lit) {
			return &Error{
				Kind: TypeMismatch, RuleID: ruleID, Subject: b.Field,
				Message: fmt.Sprintf("field %q on fact type %q is %s, cannot compare against a %T literal", b.Field, fe.Discriminant, fieldSchema.Type, lit),
			}
		}
	}
	return nil
}

// literalOf returns the Literal value a binding expression ultimately
// compares against, unwrapping a Comparison, or ok=false for a bare
// VariableRef (no literal to type-check against).
func literalOf(e BindingExpr) (any, bool) {
	switch v := e.(type) {
	case Literal:
		return v.Value, true
	case Comparison:
		return literalOf(v.Expr)
	default:
		return nil, false
	}
}

// valueKindAccepts reports whether lit's Go type (string, float64, or bool,
// per Literal's doc comment) is the one a core field of kind k resolves to
// at evaluation time. Both Severity and FlowId fields accept string
// literals: a string compared against a Severity field is read as a
// severity level name (e.g. "critical"), and FlowId fields compare as
// strings.
func valueKindAccepts(k schema.ValueKind, lit any) bool {
	switch k {
	case schema.KNumber:
		_, ok := lit.(float64)
		return ok
	case schema.KBool:
		_, ok := lit.(bool)
		return ok
	case schema.KString, schema.KSeverity, schema.KFlowID:
		_, ok := lit.(string)
		return ok
	default:
		return true
	}
}

func valueKindName(k schema.ValueKind) string {
	switch k {
	case schema.KString:
		return "a string"
	case schema.KNumber:
		return "a number"
	case schema.KBool:
		return "a bool"
	case schema.KSeverity:
		return "a severity"
	case schema.KFlowID:
		return "a flow id"
	default:
		return "unknown"
	}
}

// fieldTypeAccepts is valueKindAccepts's counterpart for a custom fact
// type's declared registry.FieldType. Array and Object fields have no
// scalar literal form, so no literal comparison against them is ever
// flagged as a mismatch here.
func fieldTypeAccepts(t registry.FieldType, lit any) bool {
	switch t {
	case registry.FieldString:
		_, ok := lit.(string)
		return ok
	case registry.FieldNumber:
		_, ok := lit.(float64)
		return ok
	case registry.FieldBoolean:
		_, ok := lit.(bool)
		return ok
	default:
		return true
	}
}
