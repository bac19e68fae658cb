package strategy

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
	"github.com/actuallystonmai/recommendation-engine/internal/metrics"
	"github.com/actuallystonmai/recommendation-engine/internal/similarity"
)

const NameItemCF = "itemcf"

// ItemCF recommends items similar to the ones a user already interacted
// with, using a precomputed item similarity index.
//
// The index is swapped in whole after training; readers load it once per
// call and never see a partially built one.
type ItemCF struct {
	cfg    Config
	store  InteractionReader
	log    zerolog.Logger
	metric similarity.Metric

	index   atomic.Pointer[similarity.Index]
	trainMu sync.Mutex

	random  *Random
	popular *Popularity
}

// ModelInfo describes the installed similarity index.
type ModelInfo struct {
	similarity.Metadata
	Neighbors int `json:"neighbors"`
}

// NewItemCF builds the strategy and loads a persisted index from
// cfg.CachePath if one exists. A missing or unreadable file leaves the
// strategy unfitted.
func NewItemCF(deps Deps, cfg Config) *ItemCF {
	if cfg.TopNSimilar <= 0 {
		cfg.TopNSimilar = similarity.DefaultTopN
	}
	log := deps.Log.With().Str("component", "strategy").Str("algorithm", NameItemCF).Logger()

	metric, ok := similarity.MetricByName(cfg.SimilarityMethod)
	if !ok {
		log.Warn().Str("similarity_method", cfg.SimilarityMethod).Msg("unknown similarity method, using cosine")
	}
	cfg.SimilarityMethod = metric.Name()

	c := &ItemCF{
		cfg:     cfg,
		store:   deps.Store,
		log:     log,
		metric:  metric,
		random:  NewRandom(deps, cfg),
		popular: NewPopularity(deps, DefaultConfig()),
	}
	c.loadIndex()
	return c
}

func (c *ItemCF) loadIndex() {
	if c.cfg.CachePath == "" {
		return
	}
	idx, err := similarity.Load(c.cfg.CachePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.log.Info().Str("path", c.cfg.CachePath).Msg("no similarity index on disk")
		return
	case err != nil:
		c.log.Error().Err(err).Msg("load similarity index")
		return
	case idx.Len() == 0:
		return
	}
	c.install(idx)
	c.log.Info().Str("path", c.cfg.CachePath).Int("items", idx.Len()).Str("build_id", idx.Meta.BuildID).
		Msg("similarity index loaded")
}

func (c *ItemCF) install(idx *similarity.Index) {
	c.index.Store(idx)
	metrics.IndexItems.Set(float64(idx.Len()))
}

func (c *ItemCF) Name() string { return NameItemCF }

func (c *ItemCF) IsFitted() bool {
	return c.index.Load().Len() > 0
}

// Fit rebuilds the similarity index from the interaction matrix. No
// qualifying interactions leaves the strategy unfitted without an error. A
// failed save is logged and the new index stays in use.
func (c *ItemCF) Fit(ctx context.Context, params TrainParams) error {
	c.trainMu.Lock()
	defer c.trainMu.Unlock()

	if params.MinInteractions < 1 {
		params.MinInteractions = 1
	}
	start := time.Now()
	c.log.Info().Int("min_interactions", params.MinInteractions).Msg("training started")

	m, err := c.store.InteractionMatrix(ctx, params.MinInteractions)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("load interaction matrix: %w", err)
	}
	if m.Empty() {
		c.index.Store(nil)
		metrics.IndexItems.Set(0)
		c.log.Warn().Msg("no interaction data available for training")
		return nil
	}

	idx, err := similarity.Compute(ctx, m, similarity.Options{
		Metric:        c.metric,
		MinSimilarity: c.cfg.MinSimilarity,
		TopN:          c.cfg.TopNSimilar,
	})
	if err != nil {
		return fmt.Errorf("compute similarity: %w", err)
	}

	if params.SaveCache && c.cfg.CachePath != "" {
		if err := similarity.Save(c.cfg.CachePath, idx); err != nil {
			c.log.Error().Err(err).Msg("save similarity index")
		} else {
			c.log.Info().Str("path", c.cfg.CachePath).Msg("similarity index saved")
		}
	}
	c.install(idx)

	c.log.Info().
		Int("users", idx.Meta.UserCount).
		Int("items", idx.Meta.ItemCount).
		Int("neighbors", idx.NeighborCount()).
		Dur("elapsed", time.Since(start)).
		Msg("training completed")
	return nil
}

func (c *ItemCF) Recommend(ctx context.Context, userID string, k int, filterInteracted bool) ([]string, error) {
	idx := c.index.Load()
	if idx.Len() == 0 {
		metrics.RecordFallback(NameItemCF, NameRandom, "not_fitted")
		c.log.Warn().Msg("model not fitted, falling back to random")
		return c.random.Recommend(ctx, userID, k, filterInteracted)
	}
	scored, _, err := c.scoreWith(ctx, idx, userID, k, filterInteracted)
	if err != nil {
		return nil, err
	}
	return itemIDs(scored), nil
}

// RecommendWithScores returns candidates scored by the sum of their
// similarity to every item in the user's history.
func (c *ItemCF) RecommendWithScores(ctx context.Context, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, error) {
	scored, _, err := c.RecommendOutcome(ctx, userID, k, filterInteracted)
	return scored, err
}

// RecommendOutcome is RecommendWithScores reporting degraded loads and which
// fallback, if any, served the call.
func (c *ItemCF) RecommendOutcome(ctx context.Context, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, Outcome, error) {
	idx := c.index.Load()
	if idx.Len() == 0 {
		metrics.RecordFallback(NameItemCF, NameRandom, "not_fitted")
		c.log.Warn().Msg("model not fitted, falling back to random")
		scored, res, err := c.random.RecommendOutcome(ctx, userID, k, filterInteracted)
		res.Fallback = NameRandom
		return scored, res, err
	}
	return c.scoreWith(ctx, idx, userID, k, filterInteracted)
}

func (c *ItemCF) scoreWith(ctx context.Context, idx *similarity.Index, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, Outcome, error) {
	var res Outcome
	if k <= 0 {
		return []domain.ScoredItem{}, res, nil
	}
	interacted, err := c.store.UserInteractedItems(ctx, userID)
	if err := res.absorb(ctx, &c.log, err, "load user interactions"); err != nil {
		return nil, res, err
	}
	if len(interacted) == 0 {
		metrics.RecordFallback(NameItemCF, NamePopularity, "cold_start")
		c.log.Info().Str("user_id", userID).Msg("no interaction history, falling back to popular")
		scored, popRes, err := c.popular.RecommendOutcome(ctx, userID, k, false)
		popRes.Degraded = popRes.Degraded || res.Degraded
		popRes.Fallback = NamePopularity
		return scored, popRes, err
	}

	// sum in a fixed order so equal inputs give bit-identical scores
	history := make([]string, 0, len(interacted))
	for id := range interacted {
		history = append(history, id)
	}
	slices.Sort(history)

	totals := make(map[string]float64)
	for _, id := range history {
		for _, n := range idx.Neighbors[id] {
			totals[n.ItemID] += float64(n.Score)
		}
	}

	out := make([]domain.ScoredItem, 0, len(totals))
	for id, score := range totals {
		if filterInteracted {
			if _, seen := interacted[id]; seen {
				continue
			}
		}
		out = append(out, domain.ScoredItem{ItemID: id, Score: score})
	}
	slices.SortFunc(out, func(a, b domain.ScoredItem) int {
		if d := cmp.Compare(b.Score, a.Score); d != 0 {
			return d
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, res, nil
}

// SimilarItems returns the top k neighbors of itemID, or an empty slice when
// the model is unfitted or the item unknown.
func (c *ItemCF) SimilarItems(itemID string, k int) []domain.SimilarItem {
	ns := c.index.Load().Similar(itemID, k)
	out := make([]domain.SimilarItem, len(ns))
	for i, n := range ns {
		out[i] = domain.SimilarItem{ItemID: n.ItemID, SimilarityScore: float64(n.Score)}
	}
	return out
}

func (c *ItemCF) ModelInfo() (ModelInfo, bool) {
	idx := c.index.Load()
	if idx.Len() == 0 {
		return ModelInfo{}, false
	}
	return ModelInfo{Metadata: idx.Meta, Neighbors: idx.NeighborCount()}, true
}

func (c *ItemCF) Config() Config { return c.cfg }
