package engine

import (
	"runtime"
	"time"

	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/ir"
)

// Finding is one confirmed match of a rule's condition: the variable
// bindings that satisfied it and the FactIds that justify it.
type Finding struct {
	RuleID      string
	Kind        dsl.RuleKind
	Severity    ir.Severity
	Description string
	Tags        []string
	Bindings    map[string]any
	FactIDs     []ir.FactId
}

// DiagnosticStatus reports how a single rule's evaluation concluded.
type DiagnosticStatus int

const (
	StatusOK DiagnosticStatus = iota
	StatusRuleTimeout
	StatusError
)

// Diagnostic records one rule's evaluation outcome and timing, independent
// of whether it produced any Findings.
type Diagnostic struct {
	RuleID   string
	Status   DiagnosticStatus
	Duration time.Duration
	Err      error
}

// Limits bounds one evaluation run, per spec.md §5.
type Limits struct {
	MaxRules            int
	MaxConcurrentRules  int
	MaxFactsPerQuery    int
	MaxEvalTime         time.Duration
	PerRuleTimeout      time.Duration
	MaxMemoryBytes      int64
}

// DefaultLimits returns conservative limits suitable when a caller supplies
// none.
func DefaultLimits() Limits {
	return Limits{
		MaxRules:           10_000,
		MaxConcurrentRules: runtime.GOMAXPROCS(0),
		MaxFactsPerQuery:   1_000_000,
		MaxEvalTime:        60 * time.Second,
		PerRuleTimeout:     10 * time.Second,
		MaxMemoryBytes:     1 << 30,
	}
}

// Result is the outcome of evaluating a rule set against a Store.
type Result struct {
	Findings    []Finding
	Diagnostics []Diagnostic
	// Aborted is true when the global MaxEvalTime was exceeded and
	// evaluation was cancelled before every rule finished; Diagnostics
	// still reports every rule that was at least started.
	Aborted bool
}
