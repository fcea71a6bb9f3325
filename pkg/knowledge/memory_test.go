package knowledge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/knowledge"
)

func TestMemory_StoreAndGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(3)

	err := store.Store(ctx, "doc-1", "hello world", []float64{1, 0, 0}, map[string]knowledge.Scalar{
		"type": "selector_correction",
		"rank": 1,
	})
	require.NoError(t, err)

	doc, meta, emb, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc)
	assert.Equal(t, "selector_correction", meta["type"])
	assert.Equal(t, []float64{1, 0, 0}, emb)
}

func TestMemory_Get_NotFound(t *testing.T) {
	store := knowledge.NewMemory(3)
	_, _, _, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, knowledge.ErrNotFound)
}

func TestMemory_Store_UpsertByID(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(2)
	require.NoError(t, store.Store(ctx, "x", "first", []float64{1, 0}, nil))
	require.NoError(t, store.Store(ctx, "x", "second", []float64{0, 1}, nil))

	doc, _, _, err := store.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "second", doc)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_Query_OrdersByDescendingSimilarity(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(2)
	require.NoError(t, store.Store(ctx, "close", "", []float64{1, 1}, nil))
	require.NoError(t, store.Store(ctx, "far", "", []float64{0, 1}, nil))
	require.NoError(t, store.Store(ctx, "exact", "", []float64{2, 0}, nil))

	hits, err := store.Query(ctx, []float64{1, 0}, 10, nil, "")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "exact", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, "far", hits[2].ID)
}

func TestMemory_Query_AppliesScalarFilter(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(2)
	require.NoError(t, store.Store(ctx, "a", "", []float64{1, 0}, map[string]knowledge.Scalar{"type": "selector_correction"}))
	require.NoError(t, store.Store(ctx, "b", "", []float64{1, 0}, map[string]knowledge.Scalar{"type": "failure_analysis"}))

	hits, err := store.Query(ctx, []float64{1, 0}, 10, map[string]knowledge.Scalar{"type": "selector_correction"}, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestMemory_Query_AppliesTextFilter(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(2)
	require.NoError(t, store.Store(ctx, "a", "login button missing", []float64{1, 0}, nil))
	require.NoError(t, store.Store(ctx, "b", "checkout flow broken", []float64{1, 0}, nil))

	hits, err := store.Query(ctx, []float64{1, 0}, 10, nil, "login")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestMemory_Query_RejectsDimensionMismatch(t *testing.T) {
	store := knowledge.NewMemory(3)
	_, err := store.Query(context.Background(), []float64{1, 0}, 10, nil, "")
	require.Error(t, err)
}

func TestMemory_Aggregate_CountsPassFailAndDuration(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemory(1)
	require.NoError(t, store.Store(ctx, "r1", "", []float64{1}, map[string]knowledge.Scalar{
		"testType": "smoke", "success": true, "durationMs": 100.0,
	}))
	require.NoError(t, store.Store(ctx, "r2", "", []float64{1}, map[string]knowledge.Scalar{
		"testType": "smoke", "success": false, "durationMs": 300.0,
	}))

	agg, err := store.Aggregate(ctx, []string{"testType"})
	require.NoError(t, err)
	assert.Equal(t, 2, agg.Total)
	assert.Equal(t, 1, agg.TotalPassed)
	assert.Equal(t, 1, agg.TotalFailed)
	assert.InDelta(t, 200.0, agg.AverageDurationMs, 1e-9)
	assert.Equal(t, 2, agg.CountByField["testType"]["smoke"])
}
