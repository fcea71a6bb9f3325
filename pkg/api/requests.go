package api

import (
	"time"

	"github.com/webqa/autoheal/pkg/executor"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/orchestrator"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/suite"
)

// createRunRequest is the POST /runs body: a Plan to execute now, plus
// per-run option overrides. The Plan is upserted into the Plan store as a
// side effect, so a suite that later names this planId can resolve it.
type createRunRequest struct {
	Plan    plan.Plan       `json:"plan"`
	Options executorOptions `json:"options,omitempty"`
}

// executorOptions mirrors executor.Options with JSON tags and pointer/zero
// "unset" semantics — omitted fields fall back to executor.DefaultOptions().
type executorOptions struct {
	Headless             *bool `json:"headless,omitempty"`
	ContinueOnFailure    *bool `json:"continueOnFailure,omitempty"`
	AutoHeal             *bool `json:"autoHeal,omitempty"`
	DefaultStepTimeoutMs int64 `json:"defaultStepTimeoutMs,omitempty"`
	MaxStepRetries       int   `json:"maxStepRetries,omitempty"`
	RunTimeoutMs         int64 `json:"runTimeoutMs,omitempty"`
}

func (o executorOptions) toExecutorOptions() executor.Options {
	opts := executor.DefaultOptions()
	if o.Headless != nil {
		opts.Headless = *o.Headless
	}
	if o.ContinueOnFailure != nil {
		opts.ContinueOnFailure = *o.ContinueOnFailure
	}
	if o.AutoHeal != nil {
		opts.AutoHeal = *o.AutoHeal
	}
	if o.DefaultStepTimeoutMs > 0 {
		opts.DefaultStepTimeout = time.Duration(o.DefaultStepTimeoutMs) * time.Millisecond
	}
	if o.MaxStepRetries > 0 {
		opts.MaxStepRetries = o.MaxStepRetries
	}
	if o.RunTimeoutMs > 0 {
		opts.RunTimeout = time.Duration(o.RunTimeoutMs) * time.Millisecond
	}
	return opts
}

// runSuiteRequest is the POST /suites/:suiteId/run body (spec.md §4.6).
type runSuiteRequest struct {
	Disabled []string                `json:"disabled,omitempty"`
	Mode     string                  `json:"mode,omitempty"` // "sequential" | "parallel"
	Options  suiteExecutionOverrides `json:"options,omitempty"`
}

type suiteExecutionOverrides struct {
	MaxConcurrent          int             `json:"maxConcurrent,omitempty"`
	ContinueSuiteOnFailure *bool           `json:"continueSuiteOnFailure,omitempty"`
	PlanOptions            executorOptions `json:"planOptions,omitempty"`
}

func (o suiteExecutionOverrides) apply(opts *orchestrator.Options) {
	if o.MaxConcurrent > 0 {
		opts.MaxConcurrent = o.MaxConcurrent
	}
	if o.ContinueSuiteOnFailure != nil {
		opts.ContinueSuiteOnFailure = *o.ContinueSuiteOnFailure
	}
	opts.PerPlanOptions = o.PlanOptions.toExecutorOptions()
}

// knowledgeStoreRequest is the POST /knowledge/store body (spec.md §4.2).
type knowledgeStoreRequest struct {
	ID        string                      `json:"id"`
	Document  string                      `json:"document"`
	Embedding []float64                   `json:"embedding,omitempty"`
	Metadata  map[string]knowledge.Scalar `json:"metadata,omitempty"`
}

// knowledgeQueryRequest is the POST /knowledge/query body.
type knowledgeQueryRequest struct {
	Query        string                      `json:"query,omitempty"`
	Embedding    []float64                   `json:"embedding,omitempty"`
	K            int                         `json:"k,omitempty"`
	ScalarFilter map[string]knowledge.Scalar `json:"scalarFilter,omitempty"`
	TextFilter   string                      `json:"textFilter,omitempty"`
}

// knowledgeImpactRequest is the POST /knowledge/impact body (spec.md §4.8).
type knowledgeImpactRequest struct {
	ChangedFiles  []string `json:"changedFiles"`
	CommitMessage string   `json:"commitMessage,omitempty"`
}

// triggerRequest is the POST/PUT /triggers body (spec.md §3 Trigger, minus
// server-assigned id and stats).
type triggerRequest struct {
	Enabled          bool                   `json:"enabled"`
	TriggerType      suite.TriggerType      `json:"triggerType"`
	MatchConditions  suite.MatchConditions  `json:"matchConditions"`
	TargetSuiteIDs   []string               `json:"targetSuiteIds"`
	ExecutionOptions suite.ExecutionOptions `json:"executionOptions"`
}

// webhookRequest is the normalized POST /webhooks/:provider body. Real
// provider-specific payload parsing (GitHub/GitLab webhook shapes) is out of
// scope (spec.md §4.9 Non-goals) — callers post the already-normalized event.
type webhookRequest struct {
	Branch        string   `json:"branch"`
	ChangedFiles  []string `json:"changedFiles"`
	CommitMessage string   `json:"commitMessage"`
	CommitSHA     string   `json:"commitSha"`
}
