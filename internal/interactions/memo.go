package interactions

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/actuallystonmai/recommendation-engine/internal/metrics"
)

// memo holds one aggregated view per parameter key. Entries are evicted by
// size and age; concurrent misses on the same key share one load.
type memo[V any] struct {
	view    string
	lru     *expirable.LRU[string, V]
	group   singleflight.Group
	timeout time.Duration
}

func newMemo[V any](view string, size int, ttl, loadTimeout time.Duration) *memo[V] {
	return &memo[V]{
		view:    view,
		lru:     expirable.NewLRU[string, V](size, nil, ttl),
		timeout: loadTimeout,
	}
}

// get returns the cached value for key or runs load. Only successful loads
// are stored.
//
// The load is shared by every caller waiting on key, so it runs detached from
// any one caller's cancellation and is bounded by the memo's load timeout
// instead. A caller whose context ends stops waiting; the others keep going.
func (m *memo[V]) get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if v, ok := m.lru.Get(key); ok {
		metrics.MemoHitsTotal.WithLabelValues(m.view).Inc()
		return v, nil
	}
	metrics.MemoMissesTotal.WithLabelValues(m.view).Inc()

	ch := m.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()

		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		m.lru.Add(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func (m *memo[V]) purge() { m.lru.Purge() }

func (m *memo[V]) len() int { return m.lru.Len() }
