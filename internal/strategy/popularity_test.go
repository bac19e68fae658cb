package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

func popularityEvents() []domain.Event {
	return []domain.Event{
		ev("u1", "d"), ev("u2", "d"), ev("u3", "d"), ev("u4", "d"),
		ev("u1", "b"), ev("u2", "b"), ev("u3", "b"),
		ev("u1", "a"), ev("u2", "a"), ev("u3", "a"),
		ev("u4", "c"), ev("u5", "c"),
		ev("u5", "e"),
	}
}

func TestPopularity_Ordering(t *testing.T) {
	p := NewPopularity(newDeps(nil, popularityEvents()...), DefaultConfig())
	ctx := context.Background()

	first, err := p.Recommend(ctx, "nobody", 10, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a", "b", "c", "e"}, first)

	for range 3 {
		again, err := p.Recommend(ctx, "nobody", 10, false)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	scored, err := p.RecommendWithScores(ctx, "nobody", 10, false)
	require.NoError(t, err)
	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Score, scored[i].Score)
		if scored[i-1].Score == scored[i].Score {
			assert.Less(t, scored[i-1].ItemID, scored[i].ItemID)
		}
	}
}

func TestPopularity_Recommend(t *testing.T) {
	tests := []struct {
		name      string
		user      string
		k         int
		filter    bool
		threshold int64
		want      []string
	}{
		{name: "truncates to k", user: "u5", k: 2, want: []string{"d", "a"}},
		{name: "filters interacted", user: "u1", k: 2, filter: true, want: []string{"c", "e"}},
		{name: "cold user with filter", user: "nobody", k: 3, filter: true, want: []string{"d", "a", "b"}},
		{name: "threshold drops tail", user: "nobody", k: 10, threshold: 2, want: []string{"d", "a", "b", "c"}},
		{name: "threshold and filter", user: "u4", k: 10, filter: true, threshold: 3, want: []string{"a", "b"}},
		{name: "zero k", user: "u1", k: 0, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.PopularityThreshold = tt.threshold
			p := NewPopularity(newDeps(nil, popularityEvents()...), cfg)

			got, err := p.Recommend(context.Background(), tt.user, tt.k, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPopularity_EmptySource(t *testing.T) {
	p := NewPopularity(newDeps(nil), DefaultConfig())

	got, err := p.Recommend(context.Background(), "u1", 5, true)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPopularity_PopularityScores(t *testing.T) {
	p := NewPopularity(newDeps(nil, popularityEvents()...), DefaultConfig())

	got, err := p.PopularityScores(context.Background(), []string{"d", "e", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"d": 4, "e": 1, "zzz": 0}, got)
}
