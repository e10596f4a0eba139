package report

import (
	"encoding/json"
	"io"

	"github.com/1homsi/govern/internal/engine"
	"github.com/1homsi/govern/internal/store"
)

// jsonFinding is the wire shape of one engine.Finding in the JSON report:
// flattened, with its primary location resolved and its severity rendered
// by name (Severity.String, e.g. "Critical") rather than its ordinal.
type jsonFinding struct {
	RuleID      string         `json:"rule_id"`
	Kind        string         `json:"kind"`
	Severity    string         `json:"severity"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Bindings    map[string]any `json:"bindings,omitempty"`
	File        string         `json:"file,omitempty"`
	Line        int            `json:"line,omitempty"`
}

type jsonGateResult struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Expected float64 `json:"expected"`
	Operator string  `json:"operator"`
	Passed   bool    `json:"passed"`
	Severity string  `json:"severity"`
	Skipped  bool    `json:"skipped,omitempty"`
}

type jsonReport struct {
	AnalysisID string           `json:"analysis_id,omitempty"`
	Project    string           `json:"project,omitempty"`
	Findings   []jsonFinding    `json:"findings"`
	Gates      []jsonGateResult `json:"gates,omitempty"`
	ExitCode   int              `json:"exit_code"`
	Passed     bool             `json:"passed"`
}

// WriteJSON renders run as a single indented JSON document.
func WriteJSON(w io.Writer, st *store.Store, run Run) error {
	jr := jsonReport{
		AnalysisID: run.AnalysisID,
		Project:    run.ProjectName,
		ExitCode:   run.Gates.ExitCode,
		Passed:     run.Passed,
	}
	for _, f := range run.Findings {
		jr.Findings = append(jr.Findings, toJSONFinding(st, f))
	}
	for _, g := range run.Gates.Results {
		jr.Gates = append(jr.Gates, jsonGateResult{
			Name: g.Name, Value: g.Value, Expected: g.Expected, Operator: g.Operator,
			Passed: g.Passed, Severity: g.Severity.String(), Skipped: g.Skipped,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jr)
}

func toJSONFinding(st *store.Store, f engine.Finding) jsonFinding {
	jf := jsonFinding{
		RuleID:      f.RuleID,
		Kind:        f.Kind.String(),
		Severity:    f.Severity.String(),
		Description: f.Description,
		Tags:        f.Tags,
		Bindings:    f.Bindings,
	}
	if loc, ok := Location(st, f); ok {
		jf.File = loc.Path.String()
		jf.Line = int(loc.Line)
	}
	return jf
}
