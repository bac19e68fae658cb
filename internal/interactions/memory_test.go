package interactions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

func TestMemorySource_EventCountsAsWeight(t *testing.T) {
	src := NewMemorySource(nil, []domain.Event{
		{UserID: "u1", ItemID: "i1", Count: 3},
		{UserID: "u1", ItemID: "i1"},
		{UserID: "u2", ItemID: "i1", Count: -4},
		{UserID: "", ItemID: "i9"},
	})
	ctx := context.Background()

	records, err := src.InteractionCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.InteractionRecord{
		{UserID: "u1", ItemID: "i1", Weight: 4},
		{UserID: "u2", ItemID: "i1", Weight: 1},
	}, records)

	ids, err := src.ItemIDs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, ids, "events without a user are dropped")
}

func TestMemorySource_CooccurrenceDistinctUsers(t *testing.T) {
	src := NewMemorySource(nil, []domain.Event{
		ev("u1", "a"), ev("u1", "b"), ev("u1", "a"), ev("u1", "b"),
		ev("u2", "a"), ev("u2", "b"), ev("u2", "c"),
		ev("u3", "b"), ev("u3", "c"),
		ev("u4", "a"), ev("u4", "d"),
	})

	pairs, err := src.Cooccurrence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.CooccurrencePair{
		{ItemI: "a", ItemJ: "b", Count: 2},
		{ItemI: "b", ItemJ: "c", Count: 2},
	}, pairs)
}

func TestMemorySource_Add(t *testing.T) {
	src := NewMemorySource([]string{"x"}, nil)
	ctx := context.Background()

	items, err := src.UserItems(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	src.Add(ev("u1", "y"), ev("u1", "x"))
	items, err = src.UserItems(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, items)

	pop, err := src.ItemPopularity(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.PopularityEntry{{ItemID: "x", Count: 1}, {ItemID: "y", Count: 1}}, pop)
}

func TestMemorySource_HonorsContext(t *testing.T) {
	src := sampleSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.ItemIDs(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = src.Cooccurrence(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
