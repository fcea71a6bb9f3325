package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/driver"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/llmclient"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/resolver"
)

func TestResolver_CacheHitOnOriginalTargetSkipsLLM(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(8)
	embed := llmclient.NewFake()
	llm := llmclient.NewFake() // no scripted responses: any call fails the test

	req := resolver.Request{StepKind: plan.KindClick, Target: "text=Learn more!", Description: "click learn more"}
	emb, err := embed.Embed(ctx, "selector correction: "+req.Target+" "+req.Description)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, "cached-1", "prior correction", emb, map[string]knowledge.Scalar{
		"type":            "selector_correction",
		"originalTarget":  req.Target,
		"correctedTarget": "text=Learn more",
		"description":     req.Description,
	}))

	r := resolver.New(store, embed, llm)
	d := driver.NewFake()

	c, err := r.Resolve(ctx, req, d)
	require.NoError(t, err)
	assert.Equal(t, plan.SourceCache, c.Source)
	assert.Equal(t, "text=Learn more", c.CorrectedTarget)
	assert.Equal(t, 0, llm.Calls)
}

func TestResolver_DeterministicFallbackMatchesVisibleText(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(8)
	embed := llmclient.NewFake()

	d := driver.NewFake()
	d.RegisterElement("text=Submit order", driver.DomElement{Tag: "button", Text: "Submit order"}, "Submit order")

	r := resolver.New(store, embed, nil)
	req := resolver.Request{StepKind: plan.KindClick, Target: "#nonexistent", Description: `click "Submit order" button`}

	c, err := r.Resolve(ctx, req, d)
	require.NoError(t, err)
	assert.Equal(t, plan.SourceDeterministic, c.Source)
	assert.Equal(t, "text=Submit order", c.CorrectedTarget)
}

func TestResolver_LLMFallbackWhenCacheAndDeterministicMiss(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(8)
	embed := llmclient.NewFake()
	llm := llmclient.NewFake(`{"locator": "text=Continue", "confidence": 0.8}`)

	d := driver.NewFake() // no elements registered: deterministic stage misses

	r := resolver.New(store, embed, llm)
	req := resolver.Request{StepKind: plan.KindClick, Target: "#missing", Description: "click continue"}

	c, err := r.Resolve(ctx, req, d)
	require.NoError(t, err)
	assert.Equal(t, plan.SourceLLM, c.Source)
	assert.Equal(t, "text=Continue", c.CorrectedTarget)
	assert.Equal(t, 0.8, c.Confidence)

	// correction persisted back to the store under the flat metadata shape
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResolver_ExhaustionReturnsUnresolvable(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(8)
	embed := llmclient.NewFake()
	llm := llmclient.NewFake(`{"locator": "", "confidence": 0.1}`) // fails schema minLength

	d := driver.NewFake()
	r := resolver.New(store, embed, llm)
	req := resolver.Request{StepKind: plan.KindClick, Target: "#missing", Description: "click nothing findable"}

	_, err := r.Resolve(ctx, req, d)
	require.ErrorIs(t, err, resolver.ErrUnresolvable)
}
