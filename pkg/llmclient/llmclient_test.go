package llmclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/llmclient"
)

const correctionSchema = `{
  "type": "object",
  "required": ["locator", "confidence"],
  "properties": {
    "locator": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

func TestFake_CompleteJSON_ValidatesAgainstSchema(t *testing.T) {
	f := llmclient.NewFake(`{"locator": "text=Submit", "confidence": 0.92}`)

	raw, err := f.CompleteJSON(context.Background(), llmclient.Request{}, []byte(correctionSchema))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "text=Submit")
}

func TestFake_CompleteJSON_RejectsSchemaViolation(t *testing.T) {
	f := llmclient.NewFake(`{"locator": "text=Submit"}`)

	_, err := f.CompleteJSON(context.Background(), llmclient.Request{}, []byte(correctionSchema))
	require.Error(t, err)
	assert.True(t, llmclient.IsSchema(err))
}

func TestFake_Complete_ExhaustionReturnsTransient(t *testing.T) {
	f := llmclient.NewFake("first")
	_, err := f.Complete(context.Background(), llmclient.Request{})
	require.NoError(t, err)

	_, err = f.Complete(context.Background(), llmclient.Request{})
	require.Error(t, err)
	assert.True(t, llmclient.IsTransient(err))
}

func TestWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := llmclient.WithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return llmclient.ErrTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_StopsImmediatelyOnSchemaError(t *testing.T) {
	calls := 0
	err := llmclient.WithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return llmclient.ErrSchema
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAfterMaxRetries(t *testing.T) {
	calls := 0
	err := llmclient.WithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return llmclient.ErrTransient
	})
	require.Error(t, err)
	assert.Equal(t, llmclient.MaxTransientRetries+1, calls)
}

func TestFake_Embed_IsDeterministic(t *testing.T) {
	f := llmclient.NewFake()
	a, err := f.Embed(context.Background(), "selector correction: text=Submit click submit")
	require.NoError(t, err)
	b, err := f.Embed(context.Background(), "selector correction: text=Submit click submit")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, f.Dimensions())
}
