// Package orchestrator implements the Suite Orchestrator (C6, spec.md §4.6):
// it expands a suite tree depth-first into a flat plan list and drives each
// through a Plan Executor, either sequentially or with a bounded-concurrency
// worker pool, following pkg/queue/pool.go's registry + semaphore idiom.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/webqa/autoheal/pkg/executor"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/suite"
)

// Mode selects sequential or bounded-parallel plan execution.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// DefaultMaxConcurrent is the bound on in-flight plans in parallel mode
// (spec.md §4.6).
const DefaultMaxConcurrent = 3

// Options configures one run(suite, options) call.
type Options struct {
	Mode                   Mode
	MaxConcurrent          int
	ContinueSuiteOnFailure bool
	PerPlanOptions         executor.Options
}

// DefaultOptions mirrors the spec's stated defaults.
func DefaultOptions() Options {
	return Options{
		Mode:                   ModeSequential,
		MaxConcurrent:          DefaultMaxConcurrent,
		ContinueSuiteOnFailure: true,
		PerPlanOptions:         executor.DefaultOptions(),
	}
}

// PlanSource resolves a planId to an executable Plan. Supplied by the
// caller — the orchestrator has no opinion on where plans are stored.
type PlanSource func(ctx context.Context, planID string) (*plan.Plan, error)

// Sink receives push-based suite-level live-status updates (spec.md §4.6,
// §4.7), in addition to the per-plan Executor.Sink forwarded to each run.
type Sink interface {
	executor.Sink
	SuiteStart(suiteRunID, suiteID string, totalPlans int)
	TestQueued(suiteRunID, suiteID, planID string)
	TestStart(suiteRunID, suiteID, planID string)
	TestEnd(suiteRunID, suiteID, planID string, run *plan.Run)
	TestSkip(suiteRunID, suiteID, planID string)
	SuiteEnd(suiteRunID, suiteID string)
}

// PlanResult pairs a dispatched plan with its Run (nil Run on dispatch
// error, e.g. the plan source could not resolve planID).
type PlanResult struct {
	PlanID string
	Run    *plan.Run
	Err    error
}

// Orchestrator drives one or more Plan Executors against a suite tree.
type Orchestrator struct {
	Executors func(suiteID, planID string) *executor.Executor // factory: a fresh Executor (and so a fresh Driver) per plan
	Plans     PlanSource
	Sink      Sink
}

func New(executors func(suiteID, planID string) *executor.Executor, plans PlanSource) *Orchestrator {
	return &Orchestrator{Executors: executors, Plans: plans}
}

// Run expands suites depth-first from rootID, executes the resulting plan
// list per opts, and returns one PlanResult per dispatched plan in dispatch
// order in both modes (parallel mode stores each result at its plan's
// index). Plans skipped after a sequential-mode failure have no PlanResult.
func (o *Orchestrator) Run(ctx context.Context, suites []*suite.Suite, rootID string, disabled map[string]bool, opts Options) ([]PlanResult, error) {
	planIDs := suite.ExpandDepthFirst(suites, rootID, disabled)
	suiteRunID := uuid.NewString()
	logger := slog.With("suiteRunId", suiteRunID, "suiteId", rootID)

	if o.Sink != nil {
		o.Sink.SuiteStart(suiteRunID, rootID, len(planIDs))
		for _, id := range planIDs {
			o.Sink.TestQueued(suiteRunID, rootID, id)
		}
	}

	var results []PlanResult
	switch opts.Mode {
	case ModeParallel:
		results = o.runParallel(ctx, suiteRunID, rootID, planIDs, opts, logger)
	default:
		results = o.runSequential(ctx, suiteRunID, rootID, planIDs, opts, logger)
	}

	if o.Sink != nil {
		o.Sink.SuiteEnd(suiteRunID, rootID)
	}
	return results, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, suiteRunID, suiteID string, planIDs []string, opts Options, logger *slog.Logger) []PlanResult {
	results := make([]PlanResult, 0, len(planIDs))
	for i, id := range planIDs {
		res := o.dispatch(ctx, suiteRunID, suiteID, id, opts, logger)
		results = append(results, res)
		if res.Run != nil && res.Run.Outcome != plan.OutcomePassed && !opts.ContinueSuiteOnFailure {
			if o.Sink != nil {
				for _, skippedID := range planIDs[i+1:] {
					o.Sink.TestSkip(suiteRunID, suiteID, skippedID)
				}
			}
			break
		}
	}
	return results
}

func (o *Orchestrator) runParallel(ctx context.Context, suiteRunID, suiteID string, planIDs []string, opts Options, logger *slog.Logger) []PlanResult {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	sem := make(chan struct{}, maxConcurrent)

	results := make([]PlanResult, len(planIDs))
	var wg sync.WaitGroup
	for i, id := range planIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = o.dispatch(ctx, suiteRunID, suiteID, id, opts, logger)
		}(i, id)
	}
	wg.Wait()
	return results
}

// dispatch runs a single plan through a fresh Executor, converting a panic
// in Executor.Execute itself (as opposed to inside the Run it produces) into
// outcome=error, matching spec.md §4.6's "a plan that panics is recorded as
// outcome error".
func (o *Orchestrator) dispatch(ctx context.Context, suiteRunID, suiteID, planID string, opts Options, logger *slog.Logger) (result PlanResult) {
	result.PlanID = planID
	defer func() {
		if r := recover(); r != nil {
			logger.Error("plan dispatch panicked", "planId", planID, "recover", r)
			result.Run = &plan.Run{PlanID: planID, Outcome: plan.OutcomeError}
			result.Err = fmt.Errorf("orchestrator: plan %s panicked: %v", planID, r)
		}
	}()

	if o.Sink != nil {
		o.Sink.TestStart(suiteRunID, suiteID, planID)
	}

	p, err := o.Plans(ctx, planID)
	if err != nil {
		result.Err = fmt.Errorf("orchestrator: resolve plan %s: %w", planID, err)
		result.Run = &plan.Run{PlanID: planID, Outcome: plan.OutcomeError}
		if o.Sink != nil {
			o.Sink.TestEnd(suiteRunID, suiteID, planID, result.Run)
		}
		return result
	}

	e := o.Executors(suiteID, planID)
	run, err := e.Execute(ctx, p, opts.PerPlanOptions)
	if err != nil {
		result.Err = err
		result.Run = &plan.Run{PlanID: planID, Outcome: plan.OutcomeError}
	} else {
		result.Run = run
	}

	if o.Sink != nil {
		o.Sink.TestEnd(suiteRunID, suiteID, planID, result.Run)
	}
	return result
}
