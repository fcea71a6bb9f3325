package impact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/impact"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/llmclient"
)

func TestClassifyPath_MatchesExpectedTiers(t *testing.T) {
	assert.Equal(t, impact.RiskCritical, impact.ClassifyPath("src/auth/login.go"))
	assert.Equal(t, impact.RiskHigh, impact.ClassifyPath("src/api/handler.go"))
	assert.Equal(t, impact.RiskMedium, impact.ClassifyPath("pkg/util/strings.go"))
	assert.Equal(t, impact.RiskLow, impact.ClassifyPath("docs/readme.md"))
	assert.Equal(t, impact.RiskLow, impact.ClassifyPath("unrelated/file.go"))
}

func TestBaselineTier_PicksMaximumAcrossPaths(t *testing.T) {
	tier := impact.BaselineTier([]string{"docs/readme.md", "pkg/util/foo.go", "src/payment/charge.go"})
	assert.Equal(t, impact.RiskCritical, tier)
}

func TestAnalyser_ConsolidatesLLMRecommendation(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(8)
	embed := llmclient.NewFake()

	emb, err := embed.Embed(ctx, "login flow execution record")
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, "run-1", "login flow execution record", emb, map[string]knowledge.Scalar{"type": "execution_record"}))

	llm := llmclient.NewFake(`{"affectedFeatures":["login"],"recommendedPlanIds":[{"planId":"run-1","priority":"critical","reason":"touches auth"}],"summary":"Run full suite"}`)

	a := impact.New(store, embed, llm)
	rec := a.Analyse(ctx, impact.ChangeSet{ChangedFiles: []string{"src/auth/login.go"}, CommitMessage: "fix login bug"})

	assert.Equal(t, impact.RiskCritical, rec.RiskTier)
	assert.Equal(t, "Run full suite", rec.Summary)
	require.Len(t, rec.RecommendedPlans, 1)
	assert.Equal(t, "run-1", rec.RecommendedPlans[0].PlanID)
	assert.Equal(t, impact.PriorityCritical, rec.RecommendedPlans[0].Priority)
}

func TestAnalyser_DegradesToFallbackSummaryWhenLLMUnavailable(t *testing.T) {
	ctx := context.Background()
	a := impact.New(nil, nil, nil)
	rec := a.Analyse(ctx, impact.ChangeSet{ChangedFiles: []string{"pkg/util/strings.go"}, CommitMessage: "tidy"})

	assert.Equal(t, impact.RiskMedium, rec.RiskTier)
	assert.Equal(t, "Run affected tests", rec.Summary)
	assert.Empty(t, rec.RecommendedPlans)
}

func TestAnalyser_LowRiskFallsBackToSmokeOnly(t *testing.T) {
	ctx := context.Background()
	a := impact.New(nil, nil, nil)
	rec := a.Analyse(ctx, impact.ChangeSet{ChangedFiles: []string{"docs/readme.md"}})
	assert.Equal(t, "Smoke only", rec.Summary)
}
