// Package trigger implements the Trigger Dispatcher (C9, spec.md §4.9): it
// persists Trigger definitions, accepts manual/schedule/vcsEvent ingress,
// matches push-type Triggers' conditions against VCS events, dedupes
// repeated commit deliveries, and enqueues Suite Orchestrator runs subject
// to a bounded queue (spec.md §5 backpressure).
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/webqa/autoheal/pkg/suite"
)

// Status is the outcome recorded for one dispatch attempt (spec.md §4.9
// Execution history row).
type Status string

const (
	StatusDispatched Status = "dispatched"
	StatusDuplicate  Status = "duplicate"
	StatusNoMatch    Status = "no_match"
	StatusRejected   Status = "queue_full"
)

// ErrQueueFull is returned when the dispatch queue is at its configured
// high-water mark (spec.md §5).
var ErrQueueFull = errors.New("trigger: dispatch queue full")

// ErrUnknownTrigger is returned when a manual/target trigger id does not
// resolve.
var ErrUnknownTrigger = errors.New("trigger: unknown trigger id")

// SuiteDispatchSummary is one target suite's outcome within a History row.
type SuiteDispatchSummary struct {
	SuiteID string
	Err     string
}

// History is one Execution history row (spec.md §4.9).
type History struct {
	TriggerID string
	Status    Status
	StartedAt time.Time
	EndedAt   time.Time
	Suites    []SuiteDispatchSummary
}

// Store is the Trigger Dispatcher's persistence contract for Trigger
// definitions. MemoryStore (memory_store.go) is the in-process
// implementation; cmd/autoheal adapts storage.FSStore onto it.
type Store interface {
	Get(ctx context.Context, id string) (*suite.Trigger, error)
	ListByType(ctx context.Context, t suite.TriggerType) ([]*suite.Trigger, error)
	Save(ctx context.Context, trg *suite.Trigger) error
}

// DispatchFunc enqueues one target suite's run with the Trigger's execution
// options. Supplied by the caller — the dispatcher has no opinion on how a
// suite run is actually carried out (normally wraps orchestrator.Orchestrator.Run).
type DispatchFunc func(ctx context.Context, suiteID string, opts suite.ExecutionOptions) error

// DefaultHighWaterMark bounds pending dispatch jobs before new triggers are
// rejected with queue_full (spec.md §5).
const DefaultHighWaterMark = 100

// DefaultWorkers is how many dispatch jobs may run concurrently.
const DefaultWorkers = 4

type job struct {
	trigger *suite.Trigger
	status  Status
}

// Dispatcher is the Trigger Dispatcher.
type Dispatcher struct {
	Store    Store
	Dispatch DispatchFunc

	dedupe *dedupeSet

	jobs     chan job
	workers  int
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	historyMu sync.Mutex
	history   []History
}

// New builds a Dispatcher with the given queue capacity (0 uses
// DefaultHighWaterMark) and worker count (0 uses DefaultWorkers). Call
// Start before sending any ingress events.
func New(store Store, dispatch DispatchFunc, highWaterMark, workers int) *Dispatcher {
	if highWaterMark <= 0 {
		highWaterMark = DefaultHighWaterMark
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{
		Store:    store,
		Dispatch: dispatch,
		dedupe:   newDedupeSet(),
		jobs:     make(chan job, highWaterMark),
		workers:  workers,
		stopCh:   make(chan struct{}),
	}
}

// Start spawns the dispatch worker pool. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(ctx)
	}
}

// Stop signals the workers to exit and waits for any job they are running
// to finish; jobs still waiting in the queue are not run.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}

func (d *Dispatcher) runWorker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		case j := <-d.jobs:
			d.run(ctx, j.trigger)
		}
	}
}

// Manual fires triggerId immediately, bypassing dedupe (an explicit request
// is never a duplicate of itself).
func (d *Dispatcher) Manual(ctx context.Context, triggerID string) (History, error) {
	trg, err := d.Store.Get(ctx, triggerID)
	if err != nil {
		return History{}, fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerID)
	}
	return d.enqueue(trg)
}

// Schedule scans schedule-type triggers whose NextFireAt has elapsed.
func (d *Dispatcher) Schedule(ctx context.Context, now time.Time) ([]History, error) {
	triggers, err := d.Store.ListByType(ctx, suite.TriggerSchedule)
	if err != nil {
		return nil, fmt.Errorf("trigger: list schedule triggers: %w", err)
	}
	var results []History
	for _, trg := range triggers {
		if !trg.Enabled || trg.NextFireAt.IsZero() || trg.NextFireAt.After(now) {
			continue
		}
		h, err := d.enqueue(trg)
		if err != nil {
			slog.Warn("trigger: schedule dispatch rejected", "triggerId", trg.ID, "error", err)
		}
		results = append(results, h)
	}
	return results, nil
}

// VCSEvent matches push-type Triggers against ev and dispatches each match,
// deduplicating by triggerId:commitSha.
func (d *Dispatcher) VCSEvent(ctx context.Context, ev suite.VCSEvent) ([]History, error) {
	triggers, err := d.Store.ListByType(ctx, suite.TriggerPush)
	if err != nil {
		return nil, fmt.Errorf("trigger: list push triggers: %w", err)
	}

	var results []History
	for _, trg := range triggers {
		if !trg.Enabled || !matches(trg, ev) {
			continue
		}

		key := trg.ID + ":" + ev.CommitSHA
		if !d.dedupe.markIfNew(key) {
			h := History{TriggerID: trg.ID, Status: StatusDuplicate, StartedAt: time.Now().UTC(), EndedAt: time.Now().UTC()}
			d.record(h)
			results = append(results, h)
			continue
		}

		h, err := d.enqueue(trg)
		if err != nil {
			slog.Warn("trigger: vcs event dispatch rejected", "triggerId", trg.ID, "error", err)
		}
		results = append(results, h)
	}
	return results, nil
}

// enqueue submits trg for dispatch, rejecting with queue_full if the job
// queue is at capacity (non-blocking send, spec.md §5).
func (d *Dispatcher) enqueue(trg *suite.Trigger) (History, error) {
	select {
	case d.jobs <- job{trigger: trg}:
		return History{TriggerID: trg.ID, Status: StatusDispatched, StartedAt: time.Now().UTC()}, nil
	default:
		h := History{TriggerID: trg.ID, Status: StatusRejected, StartedAt: time.Now().UTC(), EndedAt: time.Now().UTC()}
		d.record(h)
		return h, ErrQueueFull
	}
}

func (d *Dispatcher) run(ctx context.Context, trg *suite.Trigger) {
	h := History{TriggerID: trg.ID, Status: StatusDispatched, StartedAt: time.Now().UTC()}

	for _, suiteID := range trg.TargetSuiteIDs {
		summary := SuiteDispatchSummary{SuiteID: suiteID}
		if d.Dispatch != nil {
			if err := d.Dispatch(ctx, suiteID, trg.ExecutionOptions); err != nil {
				summary.Err = err.Error()
			}
		}
		h.Suites = append(h.Suites, summary)
	}

	h.EndedAt = time.Now().UTC()
	trg.Stats.TotalFired++
	trg.Stats.LastFiredAt = h.EndedAt
	if d.Store != nil {
		if err := d.Store.Save(context.Background(), trg); err != nil {
			slog.Warn("trigger: save stats failed", "triggerId", trg.ID, "error", err)
		}
	}
	d.record(h)
}

func (d *Dispatcher) record(h History) {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()
	d.history = append(d.history, h)
}

// Records returns every recorded dispatch attempt in order.
func (d *Dispatcher) Records() []History {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()
	out := make([]History, len(d.history))
	copy(out, d.history)
	return out
}
