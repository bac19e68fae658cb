// Package interactions reads raw interaction events from an external source
// and serves the aggregated views the recommender strategies consume.
package interactions

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
	"github.com/actuallystonmai/recommendation-engine/internal/metrics"
	"github.com/actuallystonmai/recommendation-engine/internal/similarity"
)

// Source is the external store of interaction events and the item catalog.
// Limits of zero or less mean no limit.
type Source interface {
	ItemIDs(ctx context.Context, limit int) ([]string, error)
	UserItems(ctx context.Context, userID string) ([]string, error)
	InteractionCounts(ctx context.Context, minInteractions int) ([]domain.InteractionRecord, error)
	ItemPopularity(ctx context.Context, topK int) ([]domain.PopularityEntry, error)
	Cooccurrence(ctx context.Context) ([]domain.CooccurrencePair, error)
}

const (
	defaultMemoSize        = 256
	defaultMemoTTL         = 10 * time.Minute
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	defaultLoadTimeout     = 30 * time.Second
)

type Options struct {
	// MemoSize caps the entries held per view.
	MemoSize int
	MemoTTL  time.Duration
	// BreakerFailures is the number of consecutive source failures that
	// opens the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
	// LoadTimeout bounds one shared source load. Callers stop waiting when
	// their own context ends, the load itself only stops here.
	LoadTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MemoSize <= 0 {
		o.MemoSize = defaultMemoSize
	}
	if o.MemoTTL <= 0 {
		o.MemoTTL = defaultMemoTTL
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = defaultBreakerFailures
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = defaultBreakerTimeout
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = defaultLoadTimeout
	}
	return o
}

// Store memoizes aggregated views over a Source. Returned slices, maps and
// matrices are shared between callers and must be treated as read-only.
//
// Every method returns a usable value even when it also returns an error:
// failures wrap domain.ErrDataUnavailable and come with the degraded result
// (empty, or for popularity the catalog at count zero).
type Store struct {
	src Source
	log zerolog.Logger
	cb  *gobreaker.CircuitBreaker[any]

	items      *memo[[]string]
	users      *memo[map[string]struct{}]
	matrices   *memo[*similarity.Matrix]
	popularity *memo[[]domain.PopularityEntry]
	pairs      *memo[[]domain.CooccurrencePair]
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(src Source, opts Options, log zerolog.Logger) *Store {
	opts = opts.withDefaults()
	log = log.With().Str("component", "interactions").Logger()

	const breakerName = "interaction-source"
	metrics.BreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		// Loads run detached from callers, so a caller's cancellation or
		// deadline never reaches here. Only the source failing or outrunning
		// LoadTimeout counts.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("breaker state changed")
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Store{
		src:        src,
		log:        log,
		cb:         cb,
		items:      newMemo[[]string]("items", opts.MemoSize, opts.MemoTTL, opts.LoadTimeout),
		users:      newMemo[map[string]struct{}]("user_items", opts.MemoSize, opts.MemoTTL, opts.LoadTimeout),
		matrices:   newMemo[*similarity.Matrix]("matrix", opts.MemoSize, opts.MemoTTL, opts.LoadTimeout),
		popularity: newMemo[[]domain.PopularityEntry]("popularity", opts.MemoSize, opts.MemoTTL, opts.LoadTimeout),
		pairs:      newMemo[[]domain.CooccurrencePair]("cooccurrence", opts.MemoSize, opts.MemoTTL, opts.LoadTimeout),
	}
}

// call runs fn through the breaker and tags failures as data unavailable.
func call[T any](ctx context.Context, s *Store, view string, fn func(context.Context) (T, error)) (T, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(view).Inc()
		var zero T
		return zero, fmt.Errorf("load %s: %w: %w", view, domain.ErrDataUnavailable, err)
	}
	return res.(T), nil
}

func limitKey(n int) string {
	if n <= 0 {
		return "all"
	}
	return strconv.Itoa(n)
}

// AllItemIDs returns the item catalog, capped at limit when limit > 0.
func (s *Store) AllItemIDs(ctx context.Context, limit int) ([]string, error) {
	ids, err := s.items.get(ctx, limitKey(limit), func(ctx context.Context) ([]string, error) {
		return call(ctx, s, "items", func(ctx context.Context) ([]string, error) {
			return s.src.ItemIDs(ctx, limit)
		})
	})
	if err != nil {
		s.log.Error().Err(err).Int("limit", limit).Msg("load item catalog")
		return []string{}, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// UserInteractedItems returns the set of items the user interacted with. A
// failed lookup yields an empty set, which callers treat as no history.
func (s *Store) UserInteractedItems(ctx context.Context, userID string) (map[string]struct{}, error) {
	if userID == "" {
		return map[string]struct{}{}, nil
	}
	set, err := s.users.get(ctx, userID, func(ctx context.Context) (map[string]struct{}, error) {
		ids, err := call(ctx, s, "user_items", func(ctx context.Context) ([]string, error) {
			return s.src.UserItems(ctx, userID)
		})
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		return set, nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("load user interactions")
		return map[string]struct{}{}, err
	}
	return set, nil
}

// InteractionMatrix aggregates events into per (user, item) counts, keeps the
// pairs with at least minInteractions events and indexes them.
func (s *Store) InteractionMatrix(ctx context.Context, minInteractions int) (*similarity.Matrix, error) {
	if minInteractions < 1 {
		minInteractions = 1
	}
	m, err := s.matrices.get(ctx, strconv.Itoa(minInteractions), func(ctx context.Context) (*similarity.Matrix, error) {
		records, err := call(ctx, s, "matrix", func(ctx context.Context) ([]domain.InteractionRecord, error) {
			return s.src.InteractionCounts(ctx, minInteractions)
		})
		if err != nil {
			return nil, err
		}
		kept := records[:0:0]
		for _, r := range records {
			if r.Weight >= float64(minInteractions) {
				kept = append(kept, r)
			}
		}
		m := similarity.BuildMatrix(kept)
		if m.Empty() {
			s.log.Warn().Int("min_interactions", minInteractions).Msg("no interaction data qualifies")
		} else {
			s.log.Info().Int("users", m.Users()).Int("items", m.Items()).Int("interactions", len(m.Records)).
				Msg("built interaction matrix")
		}
		return m, nil
	})
	if err != nil {
		s.log.Error().Err(err).Int("min_interactions", minInteractions).Msg("build interaction matrix")
		return similarity.BuildMatrix(nil), err
	}
	return m, nil
}

// ItemPopularity returns items by interaction count, highest first, ties by
// ascending item id. If aggregation fails it falls back to the catalog with
// every count at zero and still reports the error.
func (s *Store) ItemPopularity(ctx context.Context, topK int) ([]domain.PopularityEntry, error) {
	entries, err := s.popularity.get(ctx, limitKey(topK), func(ctx context.Context) ([]domain.PopularityEntry, error) {
		entries, err := call(ctx, s, "popularity", func(ctx context.Context) ([]domain.PopularityEntry, error) {
			return s.src.ItemPopularity(ctx, topK)
		})
		if err != nil {
			return nil, err
		}
		entries = slices.Clone(entries)
		SortPopularity(entries)
		if topK > 0 && len(entries) > topK {
			entries = entries[:topK]
		}
		return entries, nil
	})
	if err == nil {
		return entries, nil
	}

	s.log.Warn().Err(err).Int("top_k", topK).Msg("load item popularity, falling back to catalog")
	ids, idsErr := s.AllItemIDs(ctx, 0)
	ids = slices.Clone(ids)
	slices.Sort(ids)
	if topK > 0 && len(ids) > topK {
		ids = ids[:topK]
	}
	fallback := make([]domain.PopularityEntry, len(ids))
	for i, id := range ids {
		fallback[i] = domain.PopularityEntry{ItemID: id}
	}
	return fallback, errors.Join(err, idsErr)
}

// Cooccurrence returns unordered item pairs shared by at least two distinct
// users.
func (s *Store) Cooccurrence(ctx context.Context) ([]domain.CooccurrencePair, error) {
	pairs, err := s.pairs.get(ctx, "all", func(ctx context.Context) ([]domain.CooccurrencePair, error) {
		pairs, err := call(ctx, s, "cooccurrence", s.src.Cooccurrence)
		if err != nil {
			return nil, err
		}
		out := make([]domain.CooccurrencePair, 0, len(pairs))
		for _, p := range pairs {
			if p.ItemI > p.ItemJ {
				p.ItemI, p.ItemJ = p.ItemJ, p.ItemI
			}
			if p.Count >= 2 && p.ItemI != p.ItemJ {
				out = append(out, p)
			}
		}
		sortPairs(out)
		s.log.Info().Int("pairs", len(out)).Msg("built cooccurrence table")
		return out, nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("build cooccurrence table")
		return []domain.CooccurrencePair{}, err
	}
	return pairs, nil
}

// Clear drops every memoized view.
func (s *Store) Clear() {
	s.items.purge()
	s.users.purge()
	s.matrices.purge()
	s.popularity.purge()
	s.pairs.purge()
	s.log.Info().Msg("interaction memo cleared")
}

// SortPopularity orders entries by count descending, then item id ascending.
func SortPopularity(entries []domain.PopularityEntry) {
	slices.SortFunc(entries, func(a, b domain.PopularityEntry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})
}

func sortPairs(pairs []domain.CooccurrencePair) {
	slices.SortFunc(pairs, func(a, b domain.CooccurrencePair) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ItemI, b.ItemI); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemJ, b.ItemJ)
	})
}
