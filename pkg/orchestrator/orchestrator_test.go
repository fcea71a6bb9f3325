package orchestrator_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/driver"
	"github.com/webqa/autoheal/pkg/executor"
	"github.com/webqa/autoheal/pkg/orchestrator"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/suite"
)

func plansFixture() map[string]*plan.Plan {
	mk := func(id string) *plan.Plan {
		return &plan.Plan{
			ID: id, Name: id,
			Steps: []plan.Step{{Ordinal: 1, Kind: plan.KindNavigate, Target: "https://example.test", Description: "open"}},
		}
	}
	return map[string]*plan.Plan{"p1": mk("p1"), "p2": mk("p2"), "p3": mk("p3")}
}

func newOrchestrator(plans map[string]*plan.Plan) *orchestrator.Orchestrator {
	return orchestrator.New(
		func(_, _ string) *executor.Executor { return executor.New(&driver.FakeFactory{}) },
		func(_ context.Context, id string) (*plan.Plan, error) {
			p, ok := plans[id]
			if !ok {
				return nil, fmt.Errorf("unknown plan %s", id)
			}
			return p, nil
		},
	)
}

func TestOrchestrator_SequentialRunsAllPlans(t *testing.T) {
	ctx := context.Background()
	suites := []*suite.Suite{{ID: "root", PlanIDs: []string{"p1", "p2", "p3"}}}
	o := newOrchestrator(plansFixture())

	opts := orchestrator.DefaultOptions()
	results, err := o.Run(ctx, suites, "root", nil, opts)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, plan.OutcomePassed, r.Run.Outcome)
	}
}

func TestOrchestrator_ParallelRespectsMaxConcurrent(t *testing.T) {
	ctx := context.Background()
	suites := []*suite.Suite{{ID: "root", PlanIDs: []string{"p1", "p2", "p3"}}}
	o := newOrchestrator(plansFixture())

	opts := orchestrator.DefaultOptions()
	opts.Mode = orchestrator.ModeParallel
	opts.MaxConcurrent = 2

	results, err := o.Run(ctx, suites, "root", nil, opts)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, plan.OutcomePassed, r.Run.Outcome)
	}
}

func TestOrchestrator_ExcludesDisabledPlans(t *testing.T) {
	ctx := context.Background()
	suites := []*suite.Suite{{ID: "root", PlanIDs: []string{"p1", "p2", "p3"}}}
	o := newOrchestrator(plansFixture())

	results, err := o.Run(ctx, suites, "root", map[string]bool{"p2": true}, orchestrator.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)
}

type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSink) StepStart(runID string, ordinal int)              {}
func (s *recordingSink) StepEnd(runID string, result plan.StepResult)     {}
func (s *recordingSink) RunEnd(runID string, run *plan.Run)               {}
func (s *recordingSink) SuiteStart(suiteRunID, suiteID string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "suiteStart")
}
func (s *recordingSink) TestQueued(suiteRunID, suiteID, planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "testQueued:"+planID)
}
func (s *recordingSink) TestStart(suiteRunID, suiteID, planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "testStart:"+planID)
}
func (s *recordingSink) TestEnd(suiteRunID, suiteID, planID string, run *plan.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "testEnd:"+planID)
}
func (s *recordingSink) TestSkip(suiteRunID, suiteID, planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "testSkip:"+planID)
}
func (s *recordingSink) SuiteEnd(suiteRunID, suiteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "suiteEnd")
}

func TestOrchestrator_EmitsLifecycleEventsInOrder(t *testing.T) {
	ctx := context.Background()
	suites := []*suite.Suite{{ID: "root", PlanIDs: []string{"p1"}}}
	o := newOrchestrator(plansFixture())
	sink := &recordingSink{}
	o.Sink = sink

	_, err := o.Run(ctx, suites, "root", nil, orchestrator.DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, []string{"suiteStart", "testQueued:p1", "testStart:p1", "testEnd:p1", "suiteEnd"}, sink.calls)
}

func TestOrchestrator_SkipsRemainingPlansOnSequentialFailureWithoutContinue(t *testing.T) {
	ctx := context.Background()
	plans := map[string]*plan.Plan{
		"p1": {ID: "p1", Name: "p1", Steps: []plan.Step{
			{Ordinal: 1, Kind: plan.KindClick, Target: "text=Missing", Description: "click missing"},
		}},
		"p2": {ID: "p2", Name: "p2", Steps: []plan.Step{
			{Ordinal: 1, Kind: plan.KindNavigate, Target: "https://example.test", Description: "open"},
		}},
		"p3": {ID: "p3", Name: "p3", Steps: []plan.Step{
			{Ordinal: 1, Kind: plan.KindNavigate, Target: "https://example.test", Description: "open"},
		}},
	}
	suites := []*suite.Suite{{ID: "root", PlanIDs: []string{"p1", "p2", "p3"}}}
	o := newOrchestrator(plans)
	sink := &recordingSink{}
	o.Sink = sink

	opts := orchestrator.DefaultOptions()
	opts.ContinueSuiteOnFailure = false
	opts.PerPlanOptions.MaxStepRetries = 0

	results, err := o.Run(ctx, suites, "root", nil, opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, plan.OutcomeFailed, results[0].Run.Outcome)

	assert.Contains(t, sink.calls, "testSkip:p2")
	assert.Contains(t, sink.calls, "testSkip:p3")
}
