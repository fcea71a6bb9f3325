package plan

import "time"

// StepStatus is the terminal state of a single StepResult.
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// Outcome is the terminal state of a Run.
type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
	OutcomeError  Outcome = "error"
)

// NetworkEvent, ConsoleEvent and PageErrorEvent mirror the Browser Driver
// Adapter's event streams (spec.md §4.1), captured per-step by wallclock
// window.
type NetworkEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
}

type ConsoleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
}

type PageErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StepResult captures the outcome of one Step's execution (spec.md §3).
type StepResult struct {
	Ordinal       int                  `json:"ordinal"`
	Status        StepStatus           `json:"status"`
	Attempts      int                  `json:"attempts"`
	DurationMs    int64                `json:"durationMs"`
	ExpectedText  string               `json:"expectedText,omitempty"`
	ActualText    string               `json:"actualText,omitempty"`
	Correction    *SelectorCorrection  `json:"correction,omitempty"`
	ErrorKind     ErrorKind            `json:"errorKind,omitempty"`
	ErrorMessage  string               `json:"errorMessage,omitempty"`
	ScreenshotRef string               `json:"screenshotRef,omitempty"`
	Network       []NetworkEvent       `json:"network,omitempty"`
	Console       []ConsoleEvent       `json:"console,omitempty"`
	PageErrors    []PageErrorEvent     `json:"pageErrors,omitempty"`
}

// ArtifactRefs are blob references collected over the life of a Run.
type ArtifactRefs struct {
	Screenshots []string `json:"screenshots,omitempty"`
	Logs        []string `json:"logs,omitempty"`
}

// AssertionsSummary tallies assert-kind StepResults.
type AssertionsSummary struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Run is a concrete execution of a Plan (spec.md §3). It is created when the
// Plan Executor begins and becomes read-only once EndedAt is set.
type Run struct {
	RunID      string             `json:"runId"`
	PlanID     string             `json:"planId"`
	PlanName   string             `json:"planName"`
	StartedAt  time.Time          `json:"startedAt"`
	EndedAt    time.Time          `json:"endedAt,omitempty"`
	Outcome    Outcome            `json:"outcome"`
	Steps      []StepResult       `json:"steps"`
	Artifacts  ArtifactRefs       `json:"artifacts"`
	Assertions AssertionsSummary  `json:"assertions"`
	Analysis   *FailureAnalysis   `json:"analysis,omitempty"`
}

// Counts returns (passed, failed, skipped) across all step results.
func (r *Run) Counts() (passed, failed, skipped int) {
	for _, s := range r.Steps {
		switch s.Status {
		case StepPassed:
			passed++
		case StepFailed:
			failed++
		case StepSkipped:
			skipped++
		}
	}
	return
}

// DurationMs returns the Run's end-to-end wallclock duration. Zero if not
// yet ended.
func (r *Run) DurationMs() int64 {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt).Milliseconds()
}
