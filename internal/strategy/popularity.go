package strategy

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

const NamePopularity = "popular"

// Popularity ranks items by global interaction count.
type Popularity struct {
	store     InteractionReader
	log       zerolog.Logger
	threshold int64
}

func NewPopularity(deps Deps, cfg Config) *Popularity {
	return &Popularity{
		store:     deps.Store,
		log:       deps.Log.With().Str("component", "strategy").Str("algorithm", NamePopularity).Logger(),
		threshold: cfg.PopularityThreshold,
	}
}

func (p *Popularity) Name() string   { return NamePopularity }
func (p *Popularity) IsFitted() bool { return true }

func (p *Popularity) Recommend(ctx context.Context, userID string, k int, filterInteracted bool) ([]string, error) {
	scored, err := p.RecommendWithScores(ctx, userID, k, filterInteracted)
	if err != nil {
		return nil, err
	}
	return itemIDs(scored), nil
}

// RecommendWithScores returns the most popular items scored by their
// interaction count.
func (p *Popularity) RecommendWithScores(ctx context.Context, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, error) {
	scored, _, err := p.RecommendOutcome(ctx, userID, k, filterInteracted)
	return scored, err
}

// RecommendOutcome ranks by interaction count. When filtering, 3k candidates
// are fetched to absorb the items the user already interacted with.
func (p *Popularity) RecommendOutcome(ctx context.Context, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, Outcome, error) {
	var res Outcome
	if k <= 0 {
		return []domain.ScoredItem{}, res, nil
	}
	fetch := k
	if filterInteracted {
		fetch = k * 3
	}

	ranked, err := p.store.ItemPopularity(ctx, fetch)
	if err := res.absorb(ctx, &p.log, err, "load item popularity"); err != nil {
		return nil, res, err
	}

	var interacted map[string]struct{}
	if filterInteracted && len(ranked) > 0 {
		interacted, err = p.store.UserInteractedItems(ctx, userID)
		if err := res.absorb(ctx, &p.log, err, "load user interactions"); err != nil {
			return nil, res, err
		}
	}

	out := make([]domain.ScoredItem, 0, min(k, len(ranked)))
	for _, e := range ranked {
		if len(out) == k {
			break
		}
		if e.Count < p.threshold {
			continue
		}
		if _, seen := interacted[e.ItemID]; seen {
			continue
		}
		out = append(out, domain.ScoredItem{ItemID: e.ItemID, Score: float64(e.Count)})
	}
	return out, res, nil
}

// PopularityScores returns the interaction count of each requested item,
// zero for items never interacted with.
func (p *Popularity) PopularityScores(ctx context.Context, itemIDs []string) (map[string]int64, error) {
	var res Outcome
	ranked, err := p.store.ItemPopularity(ctx, 0)
	if err := res.absorb(ctx, &p.log, err, "load item popularity"); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(ranked))
	for _, e := range ranked {
		counts[e.ItemID] = e.Count
	}
	out := make(map[string]int64, len(itemIDs))
	for _, id := range itemIDs {
		out[id] = counts[id]
	}
	return out, nil
}
