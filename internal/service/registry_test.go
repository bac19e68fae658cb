package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/recommendation-engine/internal/strategy"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"item_cf", "itemcf", "mostpopular", "popular", "random"}, r.Names())

	tests := []struct {
		name      string
		canonical string
		ok        bool
	}{
		{name: "random", canonical: strategy.NameRandom, ok: true},
		{name: "Popular", canonical: strategy.NamePopularity, ok: true},
		{name: "MostPopular", canonical: strategy.NamePopularity, ok: true},
		{name: " itemcf ", canonical: strategy.NameItemCF, ok: true},
		{name: "ITEM_CF", canonical: strategy.NameItemCF, ok: true},
		{name: "bogus", ok: false},
		{name: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canonical, ctor, ok := r.Resolve(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.canonical, canonical)
			assert.Equal(t, tt.ok, ctor != nil)
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	ctor := func(d strategy.Deps, c strategy.Config) strategy.Strategy { return strategy.NewRandom(d, c) }

	require.Error(t, r.Register("  ", ctor))
	require.Error(t, r.Register("x", nil))

	require.NoError(t, r.Register("Shuffle", ctor, "RAND", ""))
	canonical, _, ok := r.Resolve("rand")
	require.True(t, ok)
	assert.Equal(t, "shuffle", canonical)
	assert.Equal(t, []string{"rand", "shuffle"}, r.Names())

	assert.Panics(t, func() { r.MustRegister("", ctor) })
}
