package suite

import "time"

// TriggerType is the ingress event kind a Trigger reacts to (spec.md §3).
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerSchedule TriggerType = "schedule"
	TriggerWebhook  TriggerType = "webhook"
	TriggerPush     TriggerType = "push"
)

// MatchConditions gates whether a push-type Trigger fires for a given VCS
// event. Globs use the doublestar grammar (supports "**").
type MatchConditions struct {
	BranchGlobs        []string `json:"branchGlobs,omitempty"`
	FileGlobs          []string `json:"fileGlobs,omitempty"`
	SkipGlobs          []string `json:"skipGlobs,omitempty"`
	CommitMessageRegex string   `json:"commitMessageRegex,omitempty"`
	ScheduleExpression string   `json:"scheduleExpression,omitempty"`
}

// ExecutionOptions carries the Suite Orchestrator options a dispatched run
// should use.
type ExecutionOptions struct {
	Parallel        bool `json:"parallel"`
	MaxConcurrent   int  `json:"maxConcurrent,omitempty"`
	TimeoutMs       int  `json:"timeoutMs,omitempty"`
	RetryOnFailure  bool `json:"retryOnFailure,omitempty"`
	MaxRetries      int  `json:"maxRetries,omitempty"`
}

// TriggerStats are running dispatch counters.
type TriggerStats struct {
	TotalFired      int       `json:"totalFired"`
	TotalDuplicates int       `json:"totalDuplicates"`
	LastFiredAt     time.Time `json:"lastFiredAt,omitempty"`
}

// Trigger maps an external event to a suite run (spec.md §3).
type Trigger struct {
	ID               string           `json:"id"`
	Enabled          bool             `json:"enabled"`
	TriggerType      TriggerType      `json:"triggerType"`
	MatchConditions  MatchConditions  `json:"matchConditions"`
	TargetSuiteIDs   []string         `json:"targetSuiteIds"`
	ExecutionOptions ExecutionOptions `json:"executionOptions"`
	Stats            TriggerStats     `json:"stats"`

	// NextFireAt is computed externally (the cron evaluator is out of scope
	// per spec.md §1/§9) and consulted by schedule(now) dispatch.
	NextFireAt time.Time `json:"nextFireAt,omitempty"`
}

// VCSEvent is the normalized ingress shape webhooks are translated into
// before reaching the Trigger Dispatcher (spec.md §4.9). Provider-specific
// parsing is out of scope; this is the fixed interface.
type VCSEvent struct {
	Provider      string   `json:"provider"`
	Branch        string   `json:"branch"`
	ChangedFiles  []string `json:"changedFiles"`
	CommitMessage string   `json:"commitMessage"`
	CommitSHA     string   `json:"commitSha"`
}
