package strategy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("item-%03d", i)
	}
	return ids
}

func TestRandom_SeededIsRepeatable(t *testing.T) {
	deps := newDeps(catalog(100), ev("u1", "item-001"), ev("u1", "item-002"))
	r := NewRandom(deps, Config{Seed: Seed(42)})
	ctx := context.Background()

	first, err := r.Recommend(ctx, "u1", 10, true)
	require.NoError(t, err)
	require.Len(t, first, 10)

	for range 5 {
		again, err := r.Recommend(ctx, "u1", 10, true)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	twin := NewRandom(deps, Config{Seed: Seed(42)})
	again, err := twin.Recommend(ctx, "u1", 10, true)
	require.NoError(t, err)
	assert.Equal(t, first, again, "same seed, same sequence across instances")
}

func TestRandom_Properties(t *testing.T) {
	deps := newDeps(catalog(20), ev("u1", "item-000"), ev("u1", "item-005"), ev("u1", "item-019"))
	r := NewRandom(deps, Config{})
	ctx := context.Background()

	for range 20 {
		got, err := r.Recommend(ctx, "u1", 8, true)
		require.NoError(t, err)
		assert.Len(t, got, 8)
		assert.NotContains(t, got, "item-000")
		assert.NotContains(t, got, "item-005")
		assert.NotContains(t, got, "item-019")

		distinct := map[string]bool{}
		for _, id := range got {
			distinct[id] = true
		}
		assert.Len(t, distinct, len(got))
	}
}

func TestRandom_Sizes(t *testing.T) {
	tests := []struct {
		name    string
		catalog []string
		k       int
		filter  bool
		want    int
	}{
		{name: "k larger than catalog", catalog: catalog(3), k: 10, want: 3},
		{name: "filter shrinks candidates", catalog: catalog(3), k: 10, filter: true, want: 2},
		{name: "empty catalog", catalog: nil, k: 5, want: 0},
		{name: "zero k", catalog: catalog(3), k: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deps = newDeps(tt.catalog)
			if len(tt.catalog) > 0 {
				deps = newDeps(tt.catalog, ev("u1", tt.catalog[0]))
			}
			got, err := NewRandom(deps, Config{Seed: Seed(1)}).Recommend(context.Background(), "u1", tt.k, tt.filter)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestRandom_DoesNotMutateCatalog(t *testing.T) {
	deps := newDeps(catalog(10))
	r := NewRandom(deps, Config{Seed: Seed(3)})
	ctx := context.Background()

	_, err := r.Recommend(ctx, "u1", 5, false)
	require.NoError(t, err)

	ids, err := deps.Store.AllItemIDs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, catalog(10), ids)
}
