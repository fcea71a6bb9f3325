// Package executor implements the Plan Executor (C5, spec.md §4.5) — the
// core of the core. It drives one Driver through one Plan's steps strictly
// in ordinal order, auto-healing broken locators via the Selector Resolver
// and diagnosing terminal failures via the Failure Analyser, then composes
// and persists an ExecutionRecord.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webqa/autoheal/pkg/analyser"
	"github.com/webqa/autoheal/pkg/driver"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/llmclient"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/resolver"
)

// Options configures one execute call (spec.md §4.5).
type Options struct {
	Headless             bool
	ContinueOnFailure    bool
	AutoHeal             bool
	DefaultStepTimeout   time.Duration
	MaxStepRetries       int
	RunTimeout           time.Duration
}

// DefaultOptions mirrors the spec's stated defaults: autoHeal=true,
// maxStepRetries=2, a 5-minute end-to-end Run budget.
func DefaultOptions() Options {
	return Options{
		AutoHeal:           true,
		DefaultStepTimeout: driver.DefaultTimeout,
		MaxStepRetries:     2,
		RunTimeout:         5 * time.Minute,
	}
}

// Sink receives push-based live-status updates (spec.md §4.7). Executor
// calls are nil-safe: a nil Sink is simply not notified.
type Sink interface {
	StepStart(runID string, ordinal int)
	StepEnd(runID string, result plan.StepResult)
	RunEnd(runID string, run *plan.Run)
}

// Artifacts persists failure artifacts captured mid-run (spec.md §6.3's
// per-run screenshot layout).
type Artifacts interface {
	SaveScreenshot(runID string, ordinal int, data []byte, at time.Time) (string, error)
}

// Executor ties a Driver Factory to the Selector Resolver, Failure Analyser
// and Knowledge Store.
type Executor struct {
	Drivers   driver.Factory
	Resolver  *resolver.Resolver
	Analyser  *analyser.Analyser
	Store     knowledge.Store
	Embed     llmclient.EmbeddingClient
	Sink      Sink
	Artifacts Artifacts
}

// New builds an Executor. Resolver, Analyser, Store, Embed, Sink and
// Artifacts may be nil — Execute degrades gracefully (no auto-heal, no
// analysis, no persistence, no live-status push, no screenshot capture)
// rather than failing.
func New(drivers driver.Factory) *Executor {
	return &Executor{Drivers: drivers}
}

// Execute runs p to completion and returns the resulting Run. It never
// returns an error for in-plan failures — those are captured as StepResults
// and the Run's Outcome; the returned error is reserved for setup failures
// (e.g. the driver factory cannot produce a browser context).
func (e *Executor) Execute(ctx context.Context, p *plan.Plan, opts Options) (out *plan.Run, err error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("executor: invalid plan: %w", err)
	}

	runID := uuid.NewString()
	logger := slog.With("runId", runID, "planId", p.ID)

	if opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.RunTimeout)
		defer cancel()
	}

	d, err := e.Drivers.New(ctx, opts.Headless)
	if err != nil {
		return nil, fmt.Errorf("executor: create driver: %w", err)
	}

	run := &plan.Run{
		RunID:     runID,
		PlanID:    p.ID,
		PlanName:  p.Name,
		StartedAt: time.Now().UTC(),
		Outcome:   plan.OutcomePassed,
	}

	events := newEventCapture(d)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("plan execution panicked", "recover", r)
			run.Outcome = plan.OutcomeError
			out, err = run, nil
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.Close(closeCtx); err != nil {
			logger.Warn("driver close failed", "error", err)
		}
		run.EndedAt = time.Now().UTC()
		e.persist(context.Background(), p, run)
		if e.Sink != nil {
			e.Sink.RunEnd(runID, run)
		}
	}()

	skipRemaining := false
	for _, step := range p.Steps {
		if ctx.Err() != nil {
			run.Steps = append(run.Steps, plan.StepResult{
				Ordinal: step.Ordinal, Status: plan.StepSkipped,
				ErrorKind: plan.ErrorCancelled, ErrorMessage: "run cancelled",
			})
			continue
		}
		if skipRemaining {
			run.Steps = append(run.Steps, plan.StepResult{Ordinal: step.Ordinal, Status: plan.StepSkipped})
			continue
		}

		if e.Sink != nil {
			e.Sink.StepStart(runID, step.Ordinal)
		}
		stepStart := time.Now()
		result := e.runStep(ctx, d, p, step, opts, run, logger)
		result.DurationMs = time.Since(stepStart).Milliseconds()
		result.Network, result.Console, result.PageErrors = events.window(stepStart, time.Now())

		run.Steps = append(run.Steps, result)
		if e.Sink != nil {
			e.Sink.StepEnd(runID, result)
		}

		if step.Kind == plan.KindAssert {
			if result.Status == plan.StepPassed {
				run.Assertions.Passed++
			} else if result.Status == plan.StepFailed {
				run.Assertions.Failed++
			}
		}

		if result.Status == plan.StepFailed {
			run.Outcome = plan.OutcomeFailed
			if !opts.ContinueOnFailure {
				skipRemaining = true
			}
		}
	}

	return run, nil
}

// runStep executes one step's retry/auto-heal loop (spec.md §4.5 state
// machine): READY -> ATTEMPTING -> (PASSED | RETRYING | RESOLVING | FAILED).
func (e *Executor) runStep(ctx context.Context, d driver.Driver, p *plan.Plan, step plan.Step, opts Options, run *plan.Run, logger *slog.Logger) plan.StepResult {
	target := step.Target
	attempts := 0
	var correction *plan.SelectorCorrection
	var lastErr error

	maxRetries := opts.MaxStepRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return plan.StepResult{
				Ordinal: step.Ordinal, Status: plan.StepFailed, Attempts: attempts,
				ErrorKind: plan.ErrorCancelled, ErrorMessage: "run cancelled",
			}
		}

		attempts++
		ok, actual, err := e.attempt(ctx, d, step, target, opts)
		if err == nil {
			return plan.StepResult{
				Ordinal: step.Ordinal, Status: statusFor(ok), Attempts: attempts,
				ExpectedText: expectedText(step), ActualText: actual, Correction: correction,
			}
		}

		lastErr = err
		if de, isDriverErr := err.(*driver.DriverError); isDriverErr && de.Kind == driver.KindLocator {
			if opts.AutoHeal && e.Resolver != nil {
				corrected, resolveErr := e.resolveLocator(ctx, p, step, target, d)
				if resolveErr == nil {
					target = corrected.CorrectedTarget
					correction = corrected
					attempt-- // a correction attempt is orthogonal to flake retry
					continue
				}
				lastErr = fmt.Errorf("locator unresolvable: %w", errLocatorUnresolvable)
				break
			}
			break
		}

		if attempt < maxRetries {
			backoff := backoffFor(attempt)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
		}
	}

	return e.failStep(ctx, d, p, step, attempts, correction, lastErr, run, logger)
}

// errLocatorUnresolvable marks a step failure caused by Selector Resolver
// exhaustion (spec.md §4.3 "on exhaustion ... C5 treats the step as
// failed"), distinct from an ordinary DriverError so classify can map it to
// plan.ErrorLocatorUnresolvable without depending on resolver internals.
var errLocatorUnresolvable = errors.New("selector resolver exhausted")

func (e *Executor) attempt(ctx context.Context, d driver.Driver, step plan.Step, target string, opts Options) (bool, string, error) {
	timeout := opts.DefaultStepTimeout
	if timeout == 0 {
		timeout = driver.DefaultTimeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	var ok bool
	var actual string

	switch step.Kind {
	case plan.KindNavigate:
		err = d.Navigate(opCtx, step.Target, driver.WaitLoad)
	case plan.KindClick:
		err = d.Click(opCtx, target)
	case plan.KindHover:
		err = d.Hover(opCtx, target)
	case plan.KindType:
		err = d.Type(opCtx, target, step.Data, true)
	case plan.KindSelect:
		err = d.Select(opCtx, target, step.Data)
	case plan.KindPress:
		err = d.Press(opCtx, step.Data)
	case plan.KindWait:
		err = d.Wait(opCtx, target, driver.StateVisible, timeout)
	case plan.KindAssert:
		ok, actual, err = d.Assert(opCtx, *step.Expected, target)
	default:
		err = fmt.Errorf("executor: unsupported step kind %q", step.Kind)
	}

	if err == nil && step.Kind != plan.KindAssert {
		ok = true
	}
	if opCtx.Err() != nil && err != nil {
		err = driver.NewTimeoutError("operation deadline exceeded", err)
	}
	return ok, actual, err
}

func (e *Executor) resolveLocator(ctx context.Context, p *plan.Plan, step plan.Step, target string, d driver.Driver) (*plan.SelectorCorrection, error) {
	if e.Resolver == nil {
		return nil, fmt.Errorf("no resolver configured")
	}
	url, _ := d.CurrentURL(ctx)
	req := resolver.Request{
		StepKind:    step.Kind,
		Target:      target,
		Description: step.Description,
		URL:         url,
	}
	return e.Resolver.Resolve(ctx, req, d)
}

func (e *Executor) failStep(ctx context.Context, d driver.Driver, p *plan.Plan, step plan.Step, attempts int, correction *plan.SelectorCorrection, lastErr error, run *plan.Run, logger *slog.Logger) plan.StepResult {
	kind, message := classify(lastErr)

	result := plan.StepResult{
		Ordinal: step.Ordinal, Status: plan.StepFailed, Attempts: attempts,
		ExpectedText: expectedText(step), Correction: correction,
		ErrorKind: kind, ErrorMessage: message,
	}

	shotCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if shot, err := d.Screenshot(shotCtx); err == nil {
		if e.Artifacts != nil {
			ref, saveErr := e.Artifacts.SaveScreenshot(run.RunID, step.Ordinal, shot, time.Now())
			if saveErr != nil {
				logger.Warn("screenshot save failed", "step", step.Ordinal, "error", saveErr)
			} else {
				result.ScreenshotRef = ref
			}
		}
	} else {
		logger.Warn("screenshot capture failed", "step", step.Ordinal, "error", err)
	}

	if e.Analyser != nil {
		url, _ := d.CurrentURL(context.Background())
		title, _ := d.Title(context.Background())
		run.Analysis = e.Analyser.Analyse(context.Background(), analyser.Input{
			TestID: p.ID, Step: step, ErrorKind: kind, ErrorMessage: message,
			CurrentURL: url, PageTitle: title,
		})
	}

	return result
}

func classify(err error) (plan.ErrorKind, string) {
	if err == nil {
		return plan.ErrorInternal, ""
	}
	if errors.Is(err, errLocatorUnresolvable) {
		return plan.ErrorLocatorUnresolvable, err.Error()
	}
	var de *driver.DriverError
	if asDriverErr, ok := err.(*driver.DriverError); ok {
		de = asDriverErr
		switch de.Kind {
		case driver.KindLocator:
			return plan.ErrorLocatorUnresolvable, de.Error()
		case driver.KindTimeout:
			return plan.ErrorTimeout, de.Error()
		case driver.KindNetwork:
			return plan.ErrorNetwork, de.Error()
		case driver.KindAssertion:
			return plan.ErrorAssertion, de.Error()
		}
	}
	return plan.ErrorInternal, err.Error()
}

func statusFor(ok bool) plan.StepStatus {
	if ok {
		return plan.StepPassed
	}
	return plan.StepFailed
}

func expectedText(step plan.Step) string {
	if step.Expected != nil {
		return step.Expected.Describe()
	}
	return ""
}

// backoffFor implements spec.md §4.5's backoff: min(500ms * 2^attempt, 5s).
func backoffFor(attempt int) time.Duration {
	backoff := 500 * time.Millisecond * time.Duration(uint(1)<<uint(attempt))
	const cap = 5 * time.Second
	if backoff > cap {
		return cap
	}
	return backoff
}

// persist composes an ExecutionRecord and submits it to the Knowledge Store
// with an embedding of its text representation (spec.md §4.5, §6.2). Store
// failures are logged but never alter the Run outcome.
func (e *Executor) persist(ctx context.Context, p *plan.Plan, run *plan.Run) {
	if e.Store == nil || e.Embed == nil {
		return
	}
	record := plan.NewExecutionRecord(p, run)
	text := record.TextRepresentation()
	emb, err := e.Embed.Embed(ctx, text)
	if err != nil {
		slog.Warn("execution record embedding failed", "runId", run.RunID, "error", err)
		return
	}
	if err := e.Store.Store(ctx, run.RunID, text, emb, record.ToMetadata()); err != nil {
		slog.Warn("execution record persistence failed", "runId", run.RunID, "error", err)
	}
}

// eventCapture buffers a Driver's network/console/page-error streams for
// the lifetime of a Run so each step can be attributed only the events whose
// timestamp falls within its own wallclock window (spec.md §4.5).
type eventCapture struct {
	mu      sync.Mutex
	network []plan.NetworkEvent
	console []plan.ConsoleEvent
	errs    []plan.PageErrorEvent
}

func newEventCapture(d driver.Driver) *eventCapture {
	ec := &eventCapture{}
	d.OnNetwork(func(e plan.NetworkEvent) {
		ec.mu.Lock()
		ec.network = append(ec.network, e)
		ec.mu.Unlock()
	})
	d.OnConsole(func(e plan.ConsoleEvent) {
		ec.mu.Lock()
		ec.console = append(ec.console, e)
		ec.mu.Unlock()
	})
	d.OnPageError(func(e plan.PageErrorEvent) {
		ec.mu.Lock()
		ec.errs = append(ec.errs, e)
		ec.mu.Unlock()
	})
	return ec
}

func (ec *eventCapture) window(start, end time.Time) ([]plan.NetworkEvent, []plan.ConsoleEvent, []plan.PageErrorEvent) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	var net []plan.NetworkEvent
	for _, e := range ec.network {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			net = append(net, e)
		}
	}
	var con []plan.ConsoleEvent
	for _, e := range ec.console {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			con = append(con, e)
		}
	}
	var errs []plan.PageErrorEvent
	for _, e := range ec.errs {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			errs = append(errs, e)
		}
	}
	return net, con, errs
}
