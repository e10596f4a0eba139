// Package registry is the runtime registry of custom fact-type schemas and
// custom metric aggregators. It is constructed and populated before IR
// validation begins and is passed explicitly through evaluation — there is
// no global, thread-unsafe singleton (§9).
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1homsi/govern/internal/ir"
)

// FieldType closes the enumeration of value types a custom fact field may
// declare.
type FieldType int

const (
	FieldString FieldType = iota
	FieldNumber
	FieldBoolean
	FieldArray
	FieldObject
)

var fieldTypeNames = [...]string{"String", "Number", "Boolean", "Array", "Object"}

func (t FieldType) String() string {
	if t < FieldString || t > FieldObject {
		return "Unknown"
	}
	return fieldTypeNames[t]
}

// FieldSchema describes one declared field of a custom fact type.
type FieldSchema struct {
	Type        FieldType
	Required    bool
	Description string
}

// FactTypeSchema declares a custom fact type: its unique, conventionally
// namespaced discriminant ("ecosystem::subject::kind") and its finite field
// map.
type FactTypeSchema struct {
	Discriminant string
	Fields       map[string]FieldSchema
	IndexStrategies []string // subset of {"by-kind", "by-field(name)", "by-location"}
}

// MetricAggregator is a pure, terminating aggregate function referenced by
// a Custom MetricQuery (internal/gate). Store and Findings are passed as
// `any` here to avoid an import cycle with internal/store and
// internal/engine; callers type-assert to their concrete types.
type MetricAggregator func(store any, findings any) (float64, error)

// RegistrationError kinds, per spec.md §6.2.
type RegistrationError struct {
	Discriminant string
	Reason       string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registry: cannot register %q: %s", e.Discriminant, e.Reason)
}

// ValidationError kinds, per spec.md §6.2.
type ValidationError struct {
	Discriminant string
	Field        string
	Kind         ValidationErrorKind
	Expected     FieldType
	Actual       string
}

// ValidationErrorKind discriminates why a custom fact failed validation.
type ValidationErrorKind int

const (
	UnknownDiscriminant ValidationErrorKind = iota
	MissingField
	TypeMismatch
)

func (e *ValidationError) Error() string {
	switch e.Kind {
	case UnknownDiscriminant:
		return fmt.Sprintf("registry: unknown discriminant %q", e.Discriminant)
	case MissingField:
		return fmt.Sprintf("registry: %q missing required field %q", e.Discriminant, e.Field)
	default:
		return fmt.Sprintf("registry: %q field %q: expected %v, got %s", e.Discriminant, e.Field, e.Expected, e.Actual)
	}
}

// Registry holds registered custom fact-type schemas and metric
// aggregators. Construct it with New: the zero value has nil maps, so
// Register and RegisterAggregator panic on it. Every method takes the
// internal lock, so a Registry is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	schemas     map[string]FactTypeSchema
	aggregators map[string]MetricAggregator
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		schemas:     make(map[string]FactTypeSchema),
		aggregators: make(map[string]MetricAggregator),
	}
}

// Register adds a custom fact-type schema. It fails with a
// RegistrationError if the discriminant is already registered or the
// schema is structurally invalid (empty discriminant, or a field of an
// unrecognized FieldType).
func (r *Registry) Register(schema FactTypeSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if schema.Discriminant == "" {
		return &RegistrationError{Reason: "empty discriminant"}
	}
	if _, exists := r.schemas[schema.Discriminant]; exists {
		return &RegistrationError{Discriminant: schema.Discriminant, Reason: "name conflict"}
	}
	for name, f := range schema.Fields {
		if f.Type < FieldString || f.Type > FieldObject {
			return &RegistrationError{
				Discriminant: schema.Discriminant,
				Reason:       fmt.Sprintf("field %q has invalid type %v", name, f.Type),
			}
		}
	}
	r.schemas[schema.Discriminant] = schema
	return nil
}

// RegisterAggregator adds a named custom metric aggregator.
func (r *Registry) RegisterAggregator(name string, fn MetricAggregator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		return &RegistrationError{Reason: "empty aggregator name"}
	}
	if _, exists := r.aggregators[name]; exists {
		return &RegistrationError{Discriminant: name, Reason: "aggregator name conflict"}
	}
	r.aggregators[name] = fn
	return nil
}

// Aggregator looks up a registered metric aggregator by name.
func (r *Registry) Aggregator(name string) (MetricAggregator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.aggregators[name]
	return fn, ok
}

// Schema looks up a registered custom fact-type schema by discriminant.
func (r *Registry) Schema(discriminant string) (FactTypeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[discriminant]
	return s, ok
}

// Discriminants returns every registered custom discriminant, sorted, for
// "did-you-mean" suggestion building in internal/dsl.
func (r *Registry) Discriminants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemas))
	for d := range r.schemas {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Validate checks a custom fact's dynamic field bag against its registered
// schema.
func (r *Registry) Validate(fact ir.CustomFact) error {
	schema, ok := r.Schema(fact.Discriminant)
	if !ok {
		return &ValidationError{Discriminant: fact.Discriminant, Kind: UnknownDiscriminant}
	}
	for name, fs := range schema.Fields {
		val, present := fact.Fields[name]
		if !present {
			if fs.Required {
				return &ValidationError{Discriminant: fact.Discriminant, Field: name, Kind: MissingField}
			}
			continue
		}
		if !typeMatches(val, fs.Type) {
			return &ValidationError{
				Discriminant: fact.Discriminant, Field: name, Kind: TypeMismatch,
				Expected: fs.Type, Actual: fmt.Sprintf("%T", val),
			}
		}
	}
	return nil
}

func typeMatches(v any, t FieldType) bool {
	switch t {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldNumber:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case FieldBoolean:
		_, ok := v.(bool)
		return ok
	case FieldArray:
		_, ok := v.([]any)
		return ok
	case FieldObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return false
	}
}
