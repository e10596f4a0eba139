package report

import (
	"encoding/json"
	"io"

	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/store"
)

type sarifOutput struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

// sarifLevel maps a forbid/permit finding's severity to SARIF's three-way
// level enum: Major and below are "warning", Critical and Blocker are
// "error". SARIF has no "note"-worthy finding in this core — every Finding
// the engine emits already passed a forbid/permit rule, so it is always
// at least worth a warning.
func sarifLevel(sev ir.Severity) string {
	if sev >= ir.SeverityCritical {
		return "error"
	}
	return "warning"
}

// WriteSARIF renders run's findings as a SARIF 2.1.0 log, one rule entry
// per distinct RuleID and one result per finding.
func WriteSARIF(w io.Writer, st *store.Store, run Run) error {
	seen := make(map[string]bool)
	var rules []sarifRule
	var results []sarifResult

	for _, f := range run.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			rules = append(rules, sarifRule{
				ID:               f.RuleID,
				Name:             f.RuleID,
				ShortDescription: sarifMessage{Text: f.Description},
			})
		}

		result := sarifResult{
			RuleID:  f.RuleID,
			Level:   sarifLevel(f.Severity),
			Message: sarifMessage{Text: f.Description},
		}
		if loc, ok := Location(st, f); ok {
			result.Locations = []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: loc.Path.String()},
					Region:           &sarifRegion{StartLine: int(loc.Line)},
				},
			}}
		}
		results = append(results, result)
	}

	out := sarifOutput{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           "govern",
				Version:        "0.1.0",
				InformationURI: "https://github.com/1homsi/govern",
				Rules:          rules,
			}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
