// Package impact implements the Impact Analyser (C8, spec.md §4.8): given a
// VCS change set, it classifies baseline risk from changed path patterns,
// retrieves historically related execution records from the Knowledge Store,
// then asks an LLM client to consolidate the retrieved records into
// prioritized plan recommendations.
package impact

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/llmclient"
)

// RetrievalK bounds how many prior execution records inform the
// recommendation (spec.md §4.8 step 2).
const RetrievalK = 10

// LLMTimeout bounds the consolidation call (spec.md §5 budgets place impact
// analysis alongside the other LLM-bound components; no dedicated timeout is
// named, so this follows the Failure Analyser's 20s budget since both
// consolidate retrieved records into a single structured judgment).
const LLMTimeout = 20 * time.Second

// RiskTier is the baseline severity implied by a change set's touched paths.
type RiskTier string

const (
	RiskCritical RiskTier = "critical"
	RiskHigh     RiskTier = "high"
	RiskMedium   RiskTier = "medium"
	RiskLow      RiskTier = "low"
)

var tierRank = map[RiskTier]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

// riskPatterns maps a substring found in a changed path to its risk tier
// (spec.md §4.8 step 1). Checked in descending tier order so a path matching
// multiple patterns takes the highest.
var riskPatterns = []struct {
	tier     RiskTier
	patterns []string
}{
	{RiskCritical, []string{"auth", "payment", "admin"}},
	{RiskHigh, []string{"api", "db", "model"}},
	{RiskMedium, []string{"util", "helper"}},
	{RiskLow, []string{"docs", "styles"}},
}

// ChangeSet is the VCS-derived input to one impact analysis.
type ChangeSet struct {
	ChangedFiles  []string
	CommitMessage string
}

// Priority is the recommended urgency for re-running a given plan.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
)

// PlanRecommendation is one retrieved execution record mapped to a priority.
type PlanRecommendation struct {
	PlanID   string   `json:"planId"`
	Priority Priority `json:"priority"`
	Reason   string   `json:"reason"`
}

// Recommendation is the full output of one ChangeSet analysis.
type Recommendation struct {
	AffectedFeatures []string             `json:"affectedFeatures"`
	RecommendedPlans []PlanRecommendation `json:"recommendedPlanIds"`
	RiskTier         RiskTier             `json:"riskTier"`
	Summary          string               `json:"summary"` // "Run full suite" | "Run affected tests" | "Smoke only"
}

// Analyser ties the Knowledge Store to an LLM client.
type Analyser struct {
	Store knowledge.Store
	Embed llmclient.EmbeddingClient
	LLM   llmclient.Client
}

func New(store knowledge.Store, embed llmclient.EmbeddingClient, llm llmclient.Client) *Analyser {
	return &Analyser{Store: store, Embed: embed, LLM: llm}
}

// ClassifyPath returns the risk tier implied by a single path, or
// RiskLow if it matches no pattern (spec.md §4.8 step 1 names no catch-all
// tier below "low", and "low" is the weakest tier already defined).
func ClassifyPath(path string) RiskTier {
	lower := strings.ToLower(path)
	best := RiskLow
	for _, group := range riskPatterns {
		for _, pat := range group.patterns {
			if strings.Contains(lower, pat) && tierRank[group.tier] > tierRank[best] {
				best = group.tier
			}
		}
	}
	return best
}

// BaselineTier is the maximum risk tier across every changed path.
func BaselineTier(paths []string) RiskTier {
	tier := RiskLow
	for _, p := range paths {
		if t := ClassifyPath(p); tierRank[t] > tierRank[tier] {
			tier = t
		}
	}
	return tier
}

type llmConsolidation struct {
	AffectedFeatures []string             `json:"affectedFeatures"`
	RecommendedPlans []PlanRecommendation `json:"recommendedPlanIds"`
	Summary          string               `json:"summary"`
}

const consolidationSchema = `{
  "type": "object",
  "required": ["summary"],
  "properties": {
    "affectedFeatures": {"type": "array", "items": {"type": "string"}},
    "recommendedPlanIds": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["planId", "priority"],
        "properties": {
          "planId": {"type": "string"},
          "priority": {"type": "string", "enum": ["critical", "high", "medium"]},
          "reason": {"type": "string"}
        }
      }
    },
    "summary": {"type": "string", "enum": ["Run full suite", "Run affected tests", "Smoke only"]}
  }
}`

// Analyse never returns an error: collaborator failures degrade to a
// baseline-only recommendation (riskTier computed, no plan recommendations,
// summary falls back to a risk-tier-derived default) rather than failing the
// dispatching Trigger.
func (a *Analyser) Analyse(ctx context.Context, cs ChangeSet) Recommendation {
	tier := BaselineTier(cs.ChangedFiles)

	hits := a.retrieve(ctx, cs)
	resp, err := a.consolidate(ctx, cs, tier, hits)
	if err != nil {
		return Recommendation{
			RiskTier: tier,
			Summary:  fallbackSummary(tier),
		}
	}

	return Recommendation{
		AffectedFeatures: resp.AffectedFeatures,
		RecommendedPlans: resp.RecommendedPlans,
		RiskTier:         tier,
		Summary:          resp.Summary,
	}
}

func fallbackSummary(tier RiskTier) string {
	switch tier {
	case RiskCritical, RiskHigh:
		return "Run full suite"
	case RiskMedium:
		return "Run affected tests"
	default:
		return "Smoke only"
	}
}

func (a *Analyser) retrieve(ctx context.Context, cs ChangeSet) []knowledge.Hit {
	if a.Store == nil || a.Embed == nil {
		return nil
	}
	query := buildRetrievalQuery(cs)
	emb, err := a.Embed.Embed(ctx, query)
	if err != nil {
		return nil
	}
	hits, err := a.Store.Query(ctx, emb, RetrievalK, nil, "")
	if err != nil {
		return nil
	}
	return hits
}

func buildRetrievalQuery(cs ChangeSet) string {
	return fmt.Sprintf("changed files: %s\ncommit message: %s", strings.Join(cs.ChangedFiles, ", "), cs.CommitMessage)
}

func (a *Analyser) consolidate(ctx context.Context, cs ChangeSet, tier RiskTier, hits []knowledge.Hit) (*llmConsolidation, error) {
	if a.LLM == nil {
		return nil, fmt.Errorf("no llm client configured")
	}
	ctx, cancel := context.WithTimeout(ctx, LLMTimeout)
	defer cancel()

	prompt := buildConsolidationPrompt(cs, tier, hits)

	var raw []byte
	err := llmclient.WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = a.LLM.CompleteJSON(ctx, llmclient.Request{
			SystemPrompt: "You map historical test execution records to a prioritized re-run recommendation for a VCS change set. Respond with a single JSON object.",
			UserPrompt:   prompt,
			Timeout:      LLMTimeout,
		}, []byte(consolidationSchema))
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var resp llmConsolidation
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal llm response: %w", err)
	}
	return &resp, nil
}

func buildConsolidationPrompt(cs ChangeSet, tier RiskTier, hits []knowledge.Hit) string {
	prompt := fmt.Sprintf(
		"Baseline risk tier: %s\nChanged files: %s\nCommit message: %s\nRetrieved execution records: %d\n",
		tier, strings.Join(cs.ChangedFiles, ", "), cs.CommitMessage, len(hits),
	)
	for _, h := range hits {
		prompt += fmt.Sprintf("- %s (similarity %.2f): %s\n", h.ID, h.Similarity, h.Document)
	}
	prompt += `Return JSON: {"affectedFeatures": [string], "recommendedPlanIds": [{"planId": string, "priority": "critical"|"high"|"medium", "reason": string}], "summary": "Run full suite"|"Run affected tests"|"Smoke only"}`
	return prompt
}
