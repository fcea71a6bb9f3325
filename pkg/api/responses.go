package api

import (
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/suite"
	"github.com/webqa/autoheal/pkg/trigger"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// createRunResponse is returned by POST /runs.
type createRunResponse struct {
	Run *plan.Run `json:"run"`
}

// runSuiteResponse is returned by POST /suites/:suiteId/run (spec.md §4.6).
type runSuiteResponse struct {
	SuiteID string          `json:"suiteId"`
	Results []planResultDTO `json:"results"`
}

type planResultDTO struct {
	PlanID string    `json:"planId"`
	Run    *plan.Run `json:"run,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// knowledgeQueryResponse is returned by POST /knowledge/query and GET
// /knowledge/similar/:runId.
type knowledgeQueryResponse struct {
	Hits []knowledge.Hit `json:"hits"`
}

// listTriggersResponse is returned by GET /triggers.
type listTriggersResponse struct {
	Triggers []*suite.Trigger `json:"triggers"`
}

// webhookResponse is returned by POST /webhooks/:provider — one row per
// matched Trigger.
type webhookResponse struct {
	Dispatched []trigger.History `json:"dispatched"`
}
