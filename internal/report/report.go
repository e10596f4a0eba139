// Package report renders an evaluation run's findings and gate results in
// the formats a CI consumer or a human at a terminal expects: SARIF for
// code-scanning integrations, JSON for machine consumption, and a colored
// text table for interactive use. It is a consumer of the evaluation core,
// never imported by it.
package report

import (
	"github.com/1homsi/govern/internal/engine"
	"github.com/1homsi/govern/internal/gate"
	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/store"
)

// Run bundles one evaluation's outcome: the findings the rule engine
// produced, the per-rule diagnostics, and the quality gate report, plus
// enough metadata to identify the run in a report header.
type Run struct {
	AnalysisID  string
	ProjectName string
	Findings    []engine.Finding
	Diagnostics []engine.Diagnostic
	Gates       gate.Report
	Passed      bool
}

// Location resolves a Finding's source location by taking the location of
// the first cited fact that the store holds and that has one. Findings over
// facts with no SourceLocation (e.g. project-wide CoverageStats) render
// with an empty Location.
func Location(st *store.Store, f engine.Finding) (ir.SourceLocation, bool) {
	if st == nil {
		return ir.SourceLocation{}, false
	}
	for _, id := range f.FactIDs {
		fact, ok := st.Fact(id)
		if ok && fact.Location != nil {
			return *fact.Location, true
		}
	}
	return ir.SourceLocation{}, false
}
