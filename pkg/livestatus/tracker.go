// Package livestatus implements the Live-Status Tracker (C7, spec.md §4.7):
// a process-wide map from suiteId to Live Suite State, written push-based by
// C5/C6 and read via lock-free snapshots. Expired completed entries are
// cleaned up lazily on read, following pkg/runbook/cache.go's TTL pattern —
// no background goroutine is required for correctness, though Tracker also
// exposes a Sweep method for callers that want one (see pkg/cleanup/service.go
// for that ticker idiom, wired in cmd/autoheal).
package livestatus

import (
	"math"
	"sync"
	"time"

	"github.com/webqa/autoheal/pkg/plan"
)

// Status is a suite run's lifecycle phase.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSkipped   Status = "skipped"
	StatusCompleted Status = "completed"
)

// TTL is how long a completed suite's state survives before erase
// (spec.md §5 "Live-Status TTL after completion: 5 minutes").
const TTL = 5 * time.Minute

// Progress tallies plan completion within a running suite.
type Progress struct {
	Completed  int
	Total      int
	Percentage float64
}

// Counts tallies per-status plan counts within a running suite. It is
// derived fresh from Tests at every Snapshot/ActiveSnapshots call (never
// incremented in place), so Queued+Running+Passed+Failed+Error+Skipped
// always equals Progress.Total (spec.md §8 property #5) — there is no
// separate counter that could drift out of sync with per-test state.
type Counts struct {
	Queued  int
	Running int
	Passed  int
	Failed  int
	Error   int
	Skipped int
}

// TestState is one plan's live progress within a suite. Outcome is set only
// once Status reaches StatusCompleted.
type TestState struct {
	PlanID      string
	Status      Status
	Outcome     plan.Outcome
	CurrentStep int
	TotalSteps  int
	StartedAt   time.Time
	DurationMs  int64
}

// SuiteState is one suite run's full live snapshot (spec.md §3).
type SuiteState struct {
	SuiteID   string
	Status    Status
	StartedAt time.Time
	EndedAt   time.Time
	Progress  Progress
	Counts    Counts
	Tests     map[string]*TestState
}

func idleState() SuiteState {
	return SuiteState{Status: StatusIdle}
}

type entry struct {
	state       SuiteState
	completedAt time.Time
}

// Tracker is the Live-Status Tracker. All mutation is serialized per
// suiteId; reads return an immutable copy.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Snapshot returns the current state for suiteId, or {status: idle} if
// unknown or its TTL has elapsed.
func (t *Tracker) Snapshot(suiteID string) SuiteState {
	t.mu.RLock()
	e, ok := t.entries[suiteID]
	t.mu.RUnlock()
	if !ok {
		return idleState()
	}
	if t.expired(e) {
		t.evictIfStillExpired(suiteID)
		return idleState()
	}
	return copyState(e.state)
}

// ActiveSnapshots returns every non-idle, non-expired suite's state.
func (t *Tracker) ActiveSnapshots() map[string]SuiteState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]SuiteState, len(t.entries))
	for id, e := range t.entries {
		if t.expired(e) {
			continue
		}
		out[id] = copyState(e.state)
	}
	return out
}

func (t *Tracker) expired(e *entry) bool {
	return e.state.Status == StatusCompleted && !e.completedAt.IsZero() && time.Since(e.completedAt) > TTL
}

func (t *Tracker) evictIfStillExpired(suiteID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[suiteID]; ok && t.expired(e) {
		delete(t.entries, suiteID)
	}
}

// Sweep deletes every entry whose TTL has elapsed. Safe to call
// periodically from a ticker loop; Snapshot/ActiveSnapshots never need it
// for correctness since they evict lazily.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range t.entries {
		if t.expired(e) {
			delete(t.entries, id)
		}
	}
}

// StepStart, StepEnd and RunEnd satisfy executor.Sink so a *Tracker can be
// used directly as the Suite Orchestrator's suite-level Sink. Step-level
// pushes are attributed per-plan through PlanSink instead, so these are
// no-ops here.
func (t *Tracker) StepStart(runID string, ordinal int)          {}
func (t *Tracker) StepEnd(runID string, result plan.StepResult) {}
func (t *Tracker) RunEnd(runID string, run *plan.Run)           {}

// SuiteStart initializes a running suite's state.
func (t *Tracker) SuiteStart(suiteRunID, suiteID string, totalPlans int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[suiteID] = &entry{state: SuiteState{
		SuiteID:   suiteID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
		Progress:  Progress{Total: totalPlans},
		Tests:     make(map[string]*TestState),
	}}
}

// TestQueued records a plan as queued but not yet started.
func (t *Tracker) TestQueued(suiteRunID, suiteID, planID string) {
	t.withSuite(suiteID, func(s *SuiteState) {
		s.Tests[planID] = &TestState{PlanID: planID, Status: StatusQueued}
	})
}

// TestSkip marks a plan as skipped — the Suite Orchestrator calls this for
// plans it never dispatches because an earlier plan in the same sequential
// run failed and continueSuiteOnFailure=false.
func (t *Tracker) TestSkip(suiteRunID, suiteID, planID string) {
	t.withSuite(suiteID, func(s *SuiteState) {
		ts, ok := s.Tests[planID]
		if !ok {
			ts = &TestState{PlanID: planID}
			s.Tests[planID] = ts
		}
		ts.Status = StatusSkipped
	})
}

// TestStart marks a plan as running.
func (t *Tracker) TestStart(suiteRunID, suiteID, planID string) {
	t.withSuite(suiteID, func(s *SuiteState) {
		ts, ok := s.Tests[planID]
		if !ok {
			ts = &TestState{PlanID: planID}
			s.Tests[planID] = ts
		}
		ts.Status = StatusRunning
		ts.StartedAt = time.Now().UTC()
	})
}

// planSink implements executor.Sink bound to one suiteID+planID pair. The
// Suite Orchestrator's Executors factory is called per plan dispatch (see
// orchestrator.Orchestrator.Executors), so each dispatched plan gets its own
// adapter closing over its own suite/plan identity — runID and ordinal
// arrive from the Executor itself and need no further correlation.
type planSink struct {
	t        *Tracker
	suiteID  string
	planID   string
}

// PlanSink returns an executor.Sink that attributes step-level pushes for
// one plan dispatch to suiteID/planID's live state. Wire it as the per-plan
// Executor's Sink from the orchestrator's Executors factory.
func (t *Tracker) PlanSink(suiteID, planID string) *planSink {
	return &planSink{t: t, suiteID: suiteID, planID: planID}
}

func (p *planSink) StepStart(runID string, ordinal int) {
	p.t.withSuite(p.suiteID, func(s *SuiteState) {
		if ts, ok := s.Tests[p.planID]; ok {
			ts.CurrentStep = ordinal
		}
	})
}

func (p *planSink) StepEnd(runID string, result plan.StepResult) {
	p.t.withSuite(p.suiteID, func(s *SuiteState) {
		if ts, ok := s.Tests[p.planID]; ok {
			ts.TotalSteps = result.Ordinal
		}
	})
}

func (p *planSink) RunEnd(runID string, run *plan.Run) {
	p.t.withSuite(p.suiteID, func(s *SuiteState) {
		ts, ok := s.Tests[p.planID]
		if !ok {
			ts = &TestState{PlanID: p.planID}
			s.Tests[p.planID] = ts
		}
		ts.TotalSteps = len(run.Steps)
		ts.CurrentStep = len(run.Steps)
		ts.DurationMs = run.DurationMs()
	})
}

// TestEnd finalizes a plan's state from its Run. Suite-level counts and
// progress are not updated here — they're derived from Tests at snapshot
// time (see deriveCounts).
func (t *Tracker) TestEnd(suiteRunID, suiteID, planID string, run *plan.Run) {
	t.withSuite(suiteID, func(s *SuiteState) {
		ts, ok := s.Tests[planID]
		if !ok {
			ts = &TestState{PlanID: planID}
			s.Tests[planID] = ts
		}
		ts.Status = StatusCompleted
		ts.Outcome = run.Outcome
		ts.DurationMs = run.DurationMs()
	})
}

// SuiteEnd marks a suite completed and schedules TTL erase.
func (t *Tracker) SuiteEnd(suiteRunID, suiteID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[suiteID]
	if !ok {
		return
	}
	e.state.Status = StatusCompleted
	e.state.EndedAt = time.Now().UTC()
	e.completedAt = e.state.EndedAt
}

func (t *Tracker) withSuite(suiteID string, fn func(*SuiteState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[suiteID]
	if !ok {
		return
	}
	fn(&e.state)
}

func copyState(s SuiteState) SuiteState {
	out := s
	out.Tests = make(map[string]*TestState, len(s.Tests))
	for id, ts := range s.Tests {
		cp := *ts
		out.Tests[id] = &cp
	}
	out.Counts, out.Progress.Completed = deriveCounts(out.Tests)
	if out.Progress.Total > 0 {
		out.Progress.Percentage = math.Floor(100 * float64(out.Counts.Passed+out.Counts.Failed) / float64(out.Progress.Total))
	}
	return out
}

// deriveCounts tallies Counts and a terminal-state total (passed + failed +
// error + skipped) straight from each test's current Status/Outcome, so the
// result can never drift from the per-test state it's read from (spec.md §8
// property #5: queued+running+passed+failed == total, extended here with
// error/skipped so the stronger sum-to-total invariant holds unconditionally).
func deriveCounts(tests map[string]*TestState) (Counts, int) {
	var c Counts
	terminal := 0
	for _, ts := range tests {
		switch ts.Status {
		case StatusQueued:
			c.Queued++
		case StatusRunning:
			c.Running++
		case StatusSkipped:
			c.Skipped++
			terminal++
		case StatusCompleted:
			terminal++
			switch ts.Outcome {
			case plan.OutcomePassed:
				c.Passed++
			case plan.OutcomeFailed:
				c.Failed++
			case plan.OutcomeError:
				c.Error++
			}
		}
	}
	return c, terminal
}
