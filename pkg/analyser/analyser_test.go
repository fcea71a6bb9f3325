package analyser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/analyser"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/llmclient"
	"github.com/webqa/autoheal/pkg/plan"
)

func TestAnalyser_UnderstoodDiagnosisIsPersisted(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(8)
	embed := llmclient.NewFake()
	llm := llmclient.NewFake(`{
		"understood": true,
		"intent": "click the checkout button",
		"possibleCauses": ["selector changed after a redesign"],
		"suggestedFixes": ["use a role-based locator"],
		"confidence": 0.76,
		"reasoning": "element not found in snapshot"
	}`)

	a := analyser.New(store, embed, llm)
	in := analyser.Input{
		TestID: "test-1",
		Step: plan.Step{
			Ordinal: 2, Kind: plan.KindClick, Target: "#checkout", Description: "click checkout",
		},
		ErrorKind:    plan.ErrorLocatorUnresolvable,
		ErrorMessage: "no visible element matched",
		CurrentURL:   "https://example.test/cart",
		PageTitle:    "Cart",
	}

	result := a.Analyse(ctx, in)
	require.True(t, result.Understood)
	assert.Equal(t, 0.76, result.Confidence)
	assert.GreaterOrEqual(t, len(result.RawModelLog), 6)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAnalyser_LLMFailureDegradesToUnunderstood(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(8)
	embed := llmclient.NewFake()
	llm := llmclient.NewFake() // no scripted responses -> always transient

	a := analyser.New(store, embed, llm)
	in := analyser.Input{
		TestID: "test-2",
		Step:   plan.Step{Ordinal: 1, Kind: plan.KindClick, Description: "click submit"},
	}

	result := a.Analyse(ctx, in)
	assert.False(t, result.Understood)
	assert.NotEmpty(t, result.PossibleCauses)
	assert.GreaterOrEqual(t, len(result.RawModelLog), 6)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a degraded understood=false analysis must still be persisted so later C2 retrieval sees it")
}

func TestAnalyser_NeverReturnsNil(t *testing.T) {
	a := analyser.New(nil, nil, nil)
	result := a.Analyse(context.Background(), analyser.Input{Step: plan.Step{Ordinal: 1}})
	require.NotNil(t, result)
	assert.False(t, result.Understood)
}
