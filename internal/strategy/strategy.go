// Package strategy holds the interchangeable recommendation algorithms.
//
// Every algorithm implements Strategy. Scorer and Trainer are optional
// capabilities: callers check for them with a type assertion and fall back to
// Scores and a no-op training step respectively.
package strategy

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
	"github.com/actuallystonmai/recommendation-engine/internal/similarity"
)

// Strategy produces an ordered list of at most k item ids for a user.
//
// A nil error with an empty slice means the strategy is healthy but had
// nothing to offer. Missing data never yields an error; only unexpected
// faults and a done context do.
type Strategy interface {
	Name() string
	Recommend(ctx context.Context, userID string, k int, filterInteracted bool) ([]string, error)
	IsFitted() bool
}

// Scorer is implemented by strategies with native scores.
type Scorer interface {
	RecommendWithScores(ctx context.Context, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, error)
}

// Trainer is implemented by strategies that learn from interaction data.
type Trainer interface {
	Fit(ctx context.Context, params TrainParams) error
}

type TrainParams struct {
	// MinInteractions drops (user, item) pairs with fewer events.
	MinInteractions int  `json:"min_interactions"`
	SaveCache       bool `json:"save_cache"`
}

func DefaultTrainParams() TrainParams {
	return TrainParams{MinInteractions: 1, SaveCache: true}
}

// InteractionReader is the slice of the interaction store strategies read.
type InteractionReader interface {
	AllItemIDs(ctx context.Context, limit int) ([]string, error)
	UserInteractedItems(ctx context.Context, userID string) (map[string]struct{}, error)
	InteractionMatrix(ctx context.Context, minInteractions int) (*similarity.Matrix, error)
	ItemPopularity(ctx context.Context, topK int) ([]domain.PopularityEntry, error)
}

type Deps struct {
	Store InteractionReader
	Log   zerolog.Logger
}

// Constructor builds a strategy from its dependencies and configuration.
type Constructor func(deps Deps, cfg Config) Strategy

// Outcome describes how a result was produced. The zero value is a healthy
// result from the strategy that was asked.
type Outcome struct {
	// Degraded is set when a data load failed and the result was built from
	// the store's fallback value.
	Degraded bool `json:"degraded"`
	// Fallback names the strategy that served in place of the one asked.
	Fallback string `json:"fallback,omitempty"`
}

// Reusable reports whether the result may be served again to later
// requests.
func (o Outcome) Reusable() bool {
	return !o.Degraded && o.Fallback != NameRandom
}

// Reporter is implemented by strategies that report the Outcome of a call.
type Reporter interface {
	RecommendOutcome(ctx context.Context, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, Outcome, error)
}

// ScoresWithOutcome is Scores plus the Outcome of the call. Strategies that
// do not implement Reporter are taken as healthy.
func ScoresWithOutcome(ctx context.Context, s Strategy, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, Outcome, error) {
	if r, ok := s.(Reporter); ok {
		return r.RecommendOutcome(ctx, userID, k, filterInteracted)
	}
	scored, err := Scores(ctx, s, userID, k, filterInteracted)
	return scored, Outcome{}, err
}

// Scores returns scored recommendations from s. Strategies without native
// scores get rank-based ones.
func Scores(ctx context.Context, s Strategy, userID string, k int, filterInteracted bool) ([]domain.ScoredItem, error) {
	if sc, ok := s.(Scorer); ok {
		return sc.RecommendWithScores(ctx, userID, k, filterInteracted)
	}
	ids, err := s.Recommend(ctx, userID, k, filterInteracted)
	if err != nil {
		return nil, err
	}
	return RankScores(ids), nil
}

// RankScores scores item i of n as 1 - i/n.
func RankScores(ids []string) []domain.ScoredItem {
	n := float64(max(len(ids), 1))
	out := make([]domain.ScoredItem, len(ids))
	for i, id := range ids {
		out[i] = domain.ScoredItem{ItemID: id, Score: 1 - float64(i)/n}
	}
	return out
}

func itemIDs(items []domain.ScoredItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	return ids
}

// absorb logs a data access failure and marks o degraded. The store already
// handed back a degraded value, so the caller carries on unless its own
// context is done.
func (o *Outcome) absorb(ctx context.Context, log *zerolog.Logger, err error, msg string) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	o.Degraded = true
	log.Warn().Err(err).Msg(msg)
	return nil
}

var (
	_ Reporter = (*Random)(nil)
	_ Reporter = (*Popularity)(nil)
	_ Reporter = (*ItemCF)(nil)
	_ Trainer  = (*ItemCF)(nil)
)
