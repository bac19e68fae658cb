package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	recs, found, err := c.Get(ctx, "popular:u1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, recs)

	want := []domain.Recommendation{
		{ItemID: "i2", Score: 0.7071, Rank: 1},
		{ItemID: "i3", Score: 0.5, Rank: 2},
	}
	require.NoError(t, c.Set(ctx, "popular:u1", want))
	assert.True(t, mr.Exists("rec:popular:u1"))
	assert.Equal(t, time.Minute, mr.TTL("rec:popular:u1"))

	recs, found, err = c.Get(ctx, "popular:u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, recs)
}

func TestCache_Expires(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []domain.Recommendation{{ItemID: "a", Score: 1, Rank: 1}}))
	assert.Equal(t, defaultTTL, mr.TTL("rec:k"))

	mr.FastForward(defaultTTL + time.Second)
	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Clear(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, []domain.Recommendation{}))
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, []string{"unrelated"}, mr.Keys())
}

func TestCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("rec:bad", "{not json"))

	_, found, err := c.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCache_Unreachable(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}
