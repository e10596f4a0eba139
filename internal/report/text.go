package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
)

func severityColor(sev ir.Severity) string {
	switch {
	case sev >= ir.SeverityCritical:
		return colorRed
	case sev >= ir.SeverityMajor:
		return colorYellow
	default:
		return colorGreen
	}
}

// WriteText renders run as a colored table for interactive terminal use:
// one row per finding, then a gate summary, then the overall verdict.
func WriteText(w io.Writer, st *store.Store, run Run) {
	fmt.Fprintf(w, "%s%s=== Findings ===%s\n\n", colorBold, colorCyan, colorReset)

	if len(run.Findings) == 0 {
		fmt.Fprintln(w, "no findings")
	} else {
		ruleW := len("RULE")
		for _, f := range run.Findings {
			if l := len(f.RuleID); l > ruleW {
				ruleW = l
			}
		}
		const maxRule = 40
		if ruleW > maxRule {
			ruleW = maxRule
		}

		fmt.Fprintf(w, "%s%-8s  %-*s  %-18s  %s%s\n", colorBold, "SEVERITY", ruleW, "RULE", "LOCATION", "DESCRIPTION", colorReset)
		fmt.Fprintln(w, strings.Repeat("─", ruleW+60))

		for _, f := range run.Findings {
			color := severityColor(f.Severity)
			rule := f.RuleID
			if len(rule) > ruleW {
				rule = rule[:ruleW-3] + "..."
			}
			loc := "-"
			if l, ok := Location(st, f); ok {
				loc = fmt.Sprintf("%s:%d", l.Path.String(), l.Line)
			}
			fmt.Fprintf(w, "%s%-8s%s  %-*s  %-18s  %s\n", color, f.Severity, colorReset, ruleW, rule, loc, f.Description)
		}
	}

	if len(run.Gates.Results) > 0 {
		fmt.Fprintf(w, "\n%s%s=== Gates ===%s\n\n", colorBold, colorCyan, colorReset)
		for _, g := range run.Gates.Results {
			if g.Skipped {
				fmt.Fprintf(w, "  %-30s %sSKIPPED%s\n", g.Name, colorYellow, colorReset)
				continue
			}
			status, color := "PASS", colorGreen
			if !g.Passed {
				status, color = "FAIL", colorRed
			}
			fmt.Fprintf(w, "  %-30s %s%-6s%s  value=%.2f (expected %s %.2f)\n", g.Name, color, status, colorReset, g.Value, g.Operator, g.Expected)
		}
	}

	fmt.Fprintln(w)
	if run.Passed {
		fmt.Fprintf(w, "%s%s✓ PASSED%s\n", colorBold, colorGreen, colorReset)
	} else {
		fmt.Fprintf(w, "%s%s✗ FAILED%s (exit code %d)\n", colorBold, colorRed, colorReset, run.Gates.ExitCode)
	}
}
