package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1homsi/govern/internal/codec"
	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/engine"
	"github.com/1homsi/govern/internal/gate"
	"github.com/1homsi/govern/internal/obs"
	"github.com/1homsi/govern/internal/registry"
	"github.com/1homsi/govern/internal/report"
	"github.com/1homsi/govern/internal/store"
	"github.com/1homsi/govern/internal/validate"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Evaluate a fact document against rules and quality gates",
	Long: `scan decodes a fact document, validates it against the closed fact-type
union, evaluates every rule in --rules against it, runs the configured
quality gates, and prints a report.

Examples:
  govern scan --facts run.cbor --rules rules/ --output text
  govern scan --facts run.cbor --rules rules/sql_injection.rule --gates gates.yaml --output sarif --output-file results.sarif`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("facts", "", "path to a CBOR-encoded fact document (required)")
	scanCmd.Flags().String("rules", "", "path to a rule file or a directory of *.rule files (required)")
	scanCmd.Flags().String("gates", "", "path to a gates.yaml quality-gate config (optional)")
	scanCmd.Flags().String("output", "text", "output format: text, json, or sarif")
	scanCmd.Flags().String("output-file", "", "write the report here instead of stdout")
	scanCmd.Flags().String("log-level", "info", "logger level: debug, info, warn, error")
	_ = scanCmd.MarkFlagRequired("facts")
	_ = scanCmd.MarkFlagRequired("rules")
}

func runScan(cmd *cobra.Command, args []string) error {
	factsPath, _ := cmd.Flags().GetString("facts")
	rulesPath, _ := cmd.Flags().GetString("rules")
	gatesPath, _ := cmd.Flags().GetString("gates")
	outputFormat, _ := cmd.Flags().GetString("output")
	outputFile, _ := cmd.Flags().GetString("output-file")
	logLevel, _ := cmd.Flags().GetString("log-level")

	logger, err := obs.NewLogger(logLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	data, err := os.ReadFile(factsPath)
	if err != nil {
		return fmt.Errorf("reading fact document: %w", err)
	}
	doc, err := codec.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding fact document: %w", err)
	}

	reg := registry.New()
	if err := validate.Validate(doc, reg, logger); err != nil {
		return fmt.Errorf("validating fact document: %w", err)
	}
	st := store.Build(doc)

	rules, err := loadRules(rulesPath, reg)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	var gates []gate.Gate
	if gatesPath != "" {
		gates, err = LoadGates(gatesPath)
		if err != nil {
			return fmt.Errorf("loading gate config: %w", err)
		}
	}

	result, err := engine.EvaluateParallel(context.Background(), rules, st, reg, engine.DefaultLimits(), logger, nil)
	if err != nil {
		return fmt.Errorf("evaluating rules: %w", err)
	}
	for _, d := range result.Diagnostics {
		if d.Status != engine.StatusOK {
			logger.Warn("rule diagnostic", zapFields(d)...)
		}
	}
	if result.Aborted {
		logger.Warn("evaluation aborted before every rule finished", zap.Int("findings_so_far", len(result.Findings)))
	}

	gateReport, err := gate.EvaluateAll(gates, st, result.Findings, reg)
	if err != nil {
		return fmt.Errorf("evaluating gates: %w", err)
	}

	run := report.Run{
		AnalysisID:  doc.AnalysisID,
		ProjectName: doc.Project.Name,
		Findings:    result.Findings,
		Diagnostics: result.Diagnostics,
		Gates:       gateReport,
		Passed:      gateReport.Passed && !result.Aborted,
	}

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch outputFormat {
	case "text":
		report.WriteText(out, st, run)
	case "json":
		if err := report.WriteJSON(out, st, run); err != nil {
			return fmt.Errorf("writing JSON report: %w", err)
		}
	case "sarif":
		if err := report.WriteSARIF(out, st, run); err != nil {
			return fmt.Errorf("writing SARIF report: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format %q (want text, json, or sarif)", outputFormat)
	}

	if !run.Passed {
		os.Exit(gateReport.ExitCode)
	}
	return nil
}

// loadRules parses every rule in path: a single file, or every *.rule file
// in a directory (non-recursive, matching the flat layout the spec's DSL
// examples use).
func loadRules(path string, reg *registry.Registry) ([]*dsl.Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return parseRuleFile(path, reg)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var rules []*dsl.Rule
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rule") {
			continue
		}
		parsed, err := parseRuleFile(filepath.Join(path, e.Name()), reg)
		if err != nil {
			return nil, err
		}
		rules = append(rules, parsed...)
	}
	return rules, nil
}

func parseRuleFile(path string, reg *registry.Registry) ([]*dsl.Rule, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rules, err := dsl.ParseAll(string(src), reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

func zapFields(d engine.Diagnostic) []zap.Field {
	fields := []zap.Field{
		zap.String("rule_id", d.RuleID),
		zap.Int("status", int(d.Status)),
		zap.Duration("duration", d.Duration),
	}
	if d.Err != nil {
		fields = append(fields, zap.Error(d.Err))
	}
	return fields
}
