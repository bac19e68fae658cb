package strategy

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

const NameRandom = "random"

// Random samples catalog items uniformly without replacement.
type Random struct {
	store InteractionReader
	log   zerolog.Logger
	seed  *int64
}

func NewRandom(deps Deps, cfg Config) *Random {
	return &Random{
		store: deps.Store,
		log:   deps.Log.With().Str("component", "strategy").Str("algorithm", NameRandom).Logger(),
		seed:  cfg.Seed,
	}
}

func (r *Random) Name() string   { return NameRandom }
func (r *Random) IsFitted() bool { return true }

// Recommend draws min(k, candidates) items. With a seed, identical inputs
// give identical output on every call.
func (r *Random) Recommend(ctx context.Context, userID string, k int, filterInteracted bool) ([]string, error) {
	ids, _, err := r.draw(ctx, userID, k, filterInteracted)
	return ids, err
}

// RecommendOutcome scores the draw by rank.
func (r *Random) RecommendOutcome(ctx context.Context, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, Outcome, error) {
	ids, out, err := r.draw(ctx, userID, k, filterInteracted)
	if err != nil {
		return nil, out, err
	}
	return RankScores(ids), out, nil
}

func (r *Random) draw(ctx context.Context, userID string, k int, filterInteracted bool) ([]string, Outcome, error) {
	var out Outcome
	if k <= 0 {
		return []string{}, out, nil
	}
	items, err := r.store.AllItemIDs(ctx, 0)
	if err := out.absorb(ctx, &r.log, err, "load catalog"); err != nil {
		return nil, out, err
	}
	if len(items) == 0 {
		return []string{}, out, nil
	}

	candidates := items
	if filterInteracted {
		interacted, err := r.store.UserInteractedItems(ctx, userID)
		if err := out.absorb(ctx, &r.log, err, "load user interactions"); err != nil {
			return nil, out, err
		}
		if len(interacted) > 0 {
			candidates = make([]string, 0, len(items))
			for _, id := range items {
				if _, seen := interacted[id]; !seen {
					candidates = append(candidates, id)
				}
			}
		}
	}

	return sample(r.rng(), candidates, min(k, len(candidates))), out, nil
}

// rng returns a fresh generator for seeded strategies, nil otherwise.
func (r *Random) rng() *rand.Rand {
	if r.seed == nil {
		return nil
	}
	s := uint64(*r.seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// sample runs a partial Fisher-Yates shuffle over a copy of items.
func sample(rng *rand.Rand, items []string, n int) []string {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	pool := slices.Clone(items)
	for i := 0; i < n; i++ {
		j := i + intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n:n]
}
