// Package engine is the parallel Rule Engine (spec.md §5): it evaluates an
// independent goroutine per rule under golang.org/x/sync/errgroup and a
// golang.org/x/sync/semaphore concurrency cap, respecting a per-rule soft
// timeout and a global hard timeout, and never lets one rule's failure
// abort the others.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/1homsi/govern/internal/dsl"
	"github.com/1homsi/govern/internal/obs"
	"github.com/1homsi/govern/internal/plan"
	"github.com/1homsi/govern/internal/registry"
	"github.com/1homsi/govern/internal/store"
)

// EvaluateParallel evaluates every rule in rules against st concurrently,
// bounded by limits. reg resolves Custom fact-type discriminants a rule's
// condition may reference; it may be nil if none are in play. logger and
// metrics may be nil (a no-op logger is used; metrics are simply skipped).
//
// A single rule's planner rejection, evaluation error, or timeout is
// recorded as that rule's Diagnostic and does not fail the run: only a
// context cancellation from the caller, or the global MaxEvalTime, aborts
// the whole evaluation early (Result.Aborted is then true).
func EvaluateParallel(ctx context.Context, rules []*dsl.Rule, st *store.Store, reg *registry.Registry, limits Limits, logger *zap.Logger, metrics *obs.Metrics) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.MaxRules > 0 && len(rules) > limits.MaxRules {
		return Result{}, fmt.Errorf("engine: rule set of %d exceeds the configured limit of %d", len(rules), limits.MaxRules)
	}

	runCtx := ctx
	if limits.MaxEvalTime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, limits.MaxEvalTime)
		defer cancel()
	}

	concurrency := limits.MaxConcurrentRules
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(runCtx)

	var mu sync.Mutex
	var findings []Finding
	diagnostics := make([]Diagnostic, len(rules))
	stats := st.Statistics()

	for idx, rule := range rules {
		idx, rule := idx, rule
		if err := sem.Acquire(gctx, 1); err != nil {
			// The run context is already done; record every remaining
			// rule as not-run rather than silently dropping it.
			mu.Lock()
			diagnostics[idx] = Diagnostic{RuleID: rule.ID, Status: StatusError, Err: err}
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			defer sem.Release(1)
			diagnostics[idx] = evaluateOne(gctx, rule, st, reg, limits, stats, logger, metrics, &mu, &findings)
			return nil
		})
	}

	waitErr := g.Wait()
	aborted := runCtx.Err() != nil
	if waitErr != nil && !aborted {
		return Result{}, waitErr
	}
	return Result{Findings: findings, Diagnostics: diagnostics, Aborted: aborted}, nil
}

func evaluateOne(
	gctx context.Context,
	rule *dsl.Rule,
	st *store.Store,
	reg *registry.Registry,
	limits Limits,
	stats store.Statistics,
	logger *zap.Logger,
	metrics *obs.Metrics,
	mu *sync.Mutex,
	findings *[]Finding,
) Diagnostic {
	start := time.Now()

	if _, err := plan.Plan(rule.Condition, stats); err != nil {
		logger.Warn("rule rejected by planner", zap.String("rule", rule.ID), zap.Error(err))
		return Diagnostic{RuleID: rule.ID, Status: StatusError, Duration: time.Since(start), Err: err}
	}

	ruleCtx := gctx
	if limits.PerRuleTimeout > 0 {
		var cancel context.CancelFunc
		ruleCtx, cancel = context.WithTimeout(gctx, limits.PerRuleTimeout)
		defer cancel()
	}

	var budgetPtr *int
	if limits.MaxFactsPerQuery > 0 {
		budget := limits.MaxFactsPerQuery
		budgetPtr = &budget
	}

	matches, err := evalCondition(ruleCtx, rule.Condition, []match{{bindings: map[string]any{}}}, st, reg, budgetPtr)
	duration := time.Since(start)

	if err != nil {
		if ruleCtx.Err() != nil && gctx.Err() == nil {
			if metrics != nil {
				metrics.RuleTimeouts.Inc()
			}
			logger.Warn("rule evaluation exceeded its per-rule timeout", zap.String("rule", rule.ID), zap.Duration("after", duration))
			return Diagnostic{RuleID: rule.ID, Status: StatusRuleTimeout, Duration: duration, Err: err}
		}
		logger.Warn("rule evaluation failed", zap.String("rule", rule.ID), zap.Error(err))
		return Diagnostic{RuleID: rule.ID, Status: StatusError, Duration: duration, Err: err}
	}

	ruleFindings := make([]Finding, 0, len(matches))
	for _, m := range matches {
		ruleFindings = append(ruleFindings, Finding{
			RuleID:      rule.ID,
			Kind:        rule.Kind,
			Severity:    rule.Severity,
			Description: rule.Description,
			Tags:        rule.Tags,
			Bindings:    m.bindings,
			FactIDs:     m.factIDs,
		})
	}

	if metrics != nil {
		metrics.RuleDuration.Observe(duration.Seconds())
		for range ruleFindings {
			metrics.FindingsBySeverity.WithLabelValues(rule.Severity.String()).Inc()
		}
	}

	mu.Lock()
	*findings = append(*findings, ruleFindings...)
	mu.Unlock()

	return Diagnostic{RuleID: rule.ID, Status: StatusOK, Duration: duration}
}
