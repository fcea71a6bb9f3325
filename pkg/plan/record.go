package plan

import (
	"fmt"
	"strings"
	"time"
)

// ExecutionRecord is the compact projection of a Run stored in the Knowledge
// Store for semantic retrieval (spec.md §3). Metadata is kept flat so the
// store's scalar filter facility can index any field directly.
type ExecutionRecord struct {
	PlanID      string         `json:"planId"`
	PlanName    string         `json:"planName"`
	URL         string         `json:"url,omitempty"`
	StepDescrs  []string       `json:"stepDescriptions"`
	Passed      int            `json:"passed"`
	Failed      int            `json:"failed"`
	Total       int            `json:"total"`
	DurationMs  int64          `json:"durationMs"`
	Timestamp   time.Time      `json:"timestamp"`
	Errors      []string       `json:"errors,omitempty"`
	Browser     string         `json:"browser"`
	TestType    string         `json:"testType"`
	Metadata    map[string]any `json:"metadata"`
}

// NewExecutionRecord projects a completed Run into the compact shape the
// Knowledge Store indexes (spec.md §3, §4.5 persistence step).
func NewExecutionRecord(p *Plan, r *Run) *ExecutionRecord {
	passed, failed, _ := r.Counts()
	var errs []string
	var url string
	for _, s := range r.Steps {
		if s.ErrorMessage != "" {
			errs = append(errs, s.ErrorMessage)
		}
	}
	if p != nil {
		url = p.FirstNavigateURL()
	}
	browser := "chromium"
	if p != nil && p.Options.Headless != nil && !*p.Options.Headless {
		browser = "chromium (headed)"
	}
	return &ExecutionRecord{
		PlanID:     r.PlanID,
		PlanName:   r.PlanName,
		URL:        url,
		StepDescrs: stepDescriptions(p),
		Passed:     passed,
		Failed:     failed,
		Total:      passed + failed,
		DurationMs: r.DurationMs(),
		Timestamp:  r.EndedAt,
		Errors:     errs,
		Browser:    browser,
		TestType:   "e2e",
	}
}

// stepDescriptions renders each step as "<description> - <target or ''>",
// the exact per-line shape TextRepresentation's Steps block expects.
func stepDescriptions(p *Plan) []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = fmt.Sprintf("%s - %s", s.Description, s.Target)
	}
	return out
}

// TextRepresentation renders the exact skeleton spec.md §6.2 requires —
// existing retrieval corpora key cache/impact lookups on this literal
// layout, so it must not be reformatted.
func (r *ExecutionRecord) TextRepresentation() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Test: %s\n", r.PlanName)
	if r.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", r.URL)
	} else {
		b.WriteString("URL: N/A\n")
	}
	b.WriteString("Steps:\n")
	for i, d := range r.StepDescrs {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, d)
	}
	fmt.Fprintf(&b, "Results: %d passed, %d failed\n", r.Passed, r.Failed)
	fmt.Fprintf(&b, "Duration: %dms\n", r.DurationMs)
	if len(r.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	fmt.Fprintf(&b, "Browser: %s\n", r.Browser)
	fmt.Fprintf(&b, "Type: %s\n", r.TestType)
	return b.String()
}

// ToMetadata flattens the record into the scalar map the Knowledge Store's
// store() call expects — every caller-supplied field preserved verbatim.
func (r *ExecutionRecord) ToMetadata() map[string]any {
	m := map[string]any{
		"type":        "execution_record",
		"planId":      r.PlanID,
		"planName":    r.PlanName,
		"url":         r.URL,
		"passed":      r.Passed,
		"failed":      r.Failed,
		"total":       r.Total,
		"durationMs":  r.DurationMs,
		"timestamp":   r.Timestamp.Format(time.RFC3339),
		"browser":     r.Browser,
		"testType":    r.TestType,
		"success":     r.Failed == 0,
	}
	for k, v := range r.Metadata {
		m[k] = v
	}
	return m
}
