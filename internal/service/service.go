// Package service orchestrates the recommendation strategies: it resolves
// algorithm names, caches strategy instances, normalizes scores and degrades
// to a random fallback when a strategy fails.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
	"github.com/actuallystonmai/recommendation-engine/internal/metrics"
	"github.com/actuallystonmai/recommendation-engine/internal/strategy"
)

const (
	defaultK                 = 10
	defaultInstanceCacheSize = 64
	defaultBatchConcurrency  = 10
)

// Store is the interaction store the service hands to strategies. Clear
// drops its memoized views before training.
type Store interface {
	strategy.InteractionReader
	Clear()
}

// ResultCache stores scored recommendation lists. Implementations must be
// safe for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]domain.Recommendation, bool, error)
	Set(ctx context.Context, key string, recs []domain.Recommendation) error
	Clear(ctx context.Context) error
}

type Options struct {
	DefaultAlgorithm string
	// Config is the strategy configuration used when a request carries none.
	Config            strategy.Config
	InstanceCacheSize int
	BatchConcurrency  int
	// Cache is optional.
	Cache ResultCache
}

type Request struct {
	UserID           string
	Algorithm        string
	K                int
	FilterInteracted bool
	// Config overrides the service configuration for this request.
	Config *strategy.Config
}

type Service struct {
	registry *Registry
	store    Store
	log      zerolog.Logger
	cache    ResultCache

	defaultAlgorithm string
	cfg              strategy.Config
	batchConcurrency int

	mu        sync.Mutex
	instances *lru.Cache[string, strategy.Strategy]
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewService(registry *Registry, store Store, opts Options, log zerolog.Logger) (*Service, error) {
	if opts.DefaultAlgorithm == "" {
		opts.DefaultAlgorithm = strategy.NamePopularity
	}
	canonical, _, ok := registry.Resolve(opts.DefaultAlgorithm)
	if !ok {
		return nil, fmt.Errorf("default algorithm %q: %w", opts.DefaultAlgorithm, domain.ErrAlgorithmNotFound)
	}
	if opts.InstanceCacheSize <= 0 {
		opts.InstanceCacheSize = defaultInstanceCacheSize
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = defaultBatchConcurrency
	}

	instances, err := lru.New[string, strategy.Strategy](opts.InstanceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create instance cache: %w", err)
	}

	return &Service{
		registry:         registry,
		store:            store,
		log:              log.With().Str("component", "service").Logger(),
		cache:            opts.Cache,
		defaultAlgorithm: canonical,
		cfg:              opts.Config,
		batchConcurrency: opts.BatchConcurrency,
		instances:        instances,
	}, nil
}

func (s *Service) DefaultAlgorithm() string { return s.defaultAlgorithm }

// KnownAlgorithm reports whether name is registered.
func (s *Service) KnownAlgorithm(name string) bool {
	_, _, ok := s.registry.Resolve(name)
	return ok
}

// Resolve returns the canonical name of the algorithm serving name. Unknown
// or empty names give the default algorithm.
func (s *Service) Resolve(name string) string {
	if canonical, _, ok := s.registry.Resolve(name); ok {
		return canonical
	}
	return s.defaultAlgorithm
}

// resolve maps name to a registered algorithm. Unknown names resolve to the
// default algorithm.
func (s *Service) resolve(name string) (string, strategy.Constructor) {
	if name != "" {
		if canonical, ctor, ok := s.registry.Resolve(name); ok {
			return canonical, ctor
		}
		s.log.Warn().Str("algorithm", name).Str("default", s.defaultAlgorithm).
			Msg("unknown algorithm, falling back to default")
	}
	canonical, ctor, _ := s.registry.Resolve(s.defaultAlgorithm)
	return canonical, ctor
}

// instance returns the cached strategy for (algorithm, cfg), building it on
// first use.
func (s *Service) instance(name string, cfg strategy.Config) (string, strategy.Strategy) {
	canonical, ctor := s.resolve(name)
	key := canonical + "|" + cfg.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances.Get(key); ok {
		return canonical, inst
	}
	inst := ctor(strategy.Deps{Store: s.store, Log: s.log}, cfg)
	s.instances.Add(key, inst)
	s.log.Info().Str("algorithm", canonical).Msg("created strategy instance")
	return canonical, inst
}

func (s *Service) configFor(req Request) strategy.Config {
	if req.Config != nil {
		return *req.Config
	}
	return s.cfg
}

func normalizeK(k int) int {
	if k <= 0 {
		return defaultK
	}
	return k
}

// guard runs fn and turns a panic into an error.
func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return fn()
}

// Recommend returns up to req.K item ids. Strategy failures fall back to
// random recommendations; the result is empty only if that fails too.
func (s *Service) Recommend(ctx context.Context, req Request) []string {
	start := time.Now()
	req.K = normalizeK(req.K)
	cfg := s.configFor(req)
	algorithm, inst := s.instance(req.Algorithm, cfg)

	ids, err := guard(func() ([]string, error) {
		return inst.Recommend(ctx, req.UserID, req.K, req.FilterInteracted)
	})
	if err == nil {
		metrics.ObserveRecommendation(algorithm, "ok", time.Since(start))
		s.log.Debug().Str("user_id", req.UserID).Str("algorithm", algorithm).Int("count", len(ids)).
			Msg("generated recommendations")
		return ids
	}

	s.log.Error().Err(err).Str("user_id", req.UserID).Str("algorithm", algorithm).
		Msg("strategy failed, falling back to random")
	ids, err = s.lastResort(ctx, req, cfg, algorithm)
	if err != nil {
		metrics.ObserveRecommendation(algorithm, "failed", time.Since(start))
		s.log.Error().Err(err).Str("user_id", req.UserID).Msg("random fallback failed")
		return []string{}
	}
	metrics.ObserveRecommendation(algorithm, "fallback", time.Since(start))
	return ids
}

func (s *Service) lastResort(ctx context.Context, req Request, cfg strategy.Config, from string) ([]string, error) {
	metrics.RecordFallback(from, strategy.NameRandom, "error")
	random := strategy.NewRandom(strategy.Deps{Store: s.store, Log: s.log}, cfg)
	return guard(func() ([]string, error) {
		return random.Recommend(ctx, req.UserID, req.K, req.FilterInteracted)
	})
}

// RecommendWithScores returns ranked recommendations with scores rounded to
// four decimals. On strategy failure the ids come from the Recommend fallback
// and are scored by rank.
func (s *Service) RecommendWithScores(ctx context.Context, req Request) []domain.Recommendation {
	start := time.Now()
	req.K = normalizeK(req.K)
	cfg := s.configFor(req)
	algorithm, inst := s.instance(req.Algorithm, cfg)

	cacheKey := ""
	if s.cache != nil && algorithm != strategy.NameRandom {
		cacheKey = resultKey(algorithm, cfg, req)
		recs, found, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", req.UserID).Msg("result cache get")
		}
		if found {
			metrics.ResultCacheHitsTotal.Inc()
			return recs
		}
		metrics.ResultCacheMissesTotal.Inc()
	}

	var outcome strategy.Outcome
	scored, err := guard(func() ([]domain.ScoredItem, error) {
		items, res, err := strategy.ScoresWithOutcome(ctx, inst, req.UserID, req.K, req.FilterInteracted)
		outcome = res
		return items, err
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", req.UserID).Str("algorithm", algorithm).
			Msg("scored recommendation failed, using rank scores")
		ids, err := s.lastResort(ctx, req, cfg, algorithm)
		if err != nil {
			metrics.ObserveRecommendation(algorithm, "failed", time.Since(start))
			return []domain.Recommendation{}
		}
		metrics.ObserveRecommendation(algorithm, "fallback", time.Since(start))
		return rank(strategy.RankScores(ids))
	}

	recs := rank(scored)
	if !outcome.Reusable() {
		label := "fallback"
		if outcome.Degraded {
			label = "degraded"
		}
		metrics.ObserveRecommendation(algorithm, label, time.Since(start))
		s.log.Debug().Str("user_id", req.UserID).Str("algorithm", algorithm).Bool("degraded", outcome.Degraded).
			Str("fallback", outcome.Fallback).Msg("result not cached")
		return recs
	}
	metrics.ObserveRecommendation(algorithm, "ok", time.Since(start))
	if cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, recs); err != nil {
			s.log.Warn().Err(err).Str("user_id", req.UserID).Msg("result cache set")
		}
	}
	return recs
}

func rank(items []domain.ScoredItem) []domain.Recommendation {
	out := make([]domain.Recommendation, len(items))
	for i, it := range items {
		out[i] = domain.Recommendation{
			ItemID: it.ItemID,
			Score:  math.Round(it.Score*1e4) / 1e4,
			Rank:   i + 1,
		}
	}
	return out
}

func resultKey(algorithm string, cfg strategy.Config, req Request) string {
	sum := sha256.Sum256([]byte(cfg.Key()))
	return algorithm + ":" + hex.EncodeToString(sum[:8]) + ":" + req.UserID + ":" +
		strconv.Itoa(req.K) + ":" + strconv.FormatBool(req.FilterInteracted)
}

// BatchRecommend recommends for every user independently. A failing user maps
// to an empty list without affecting the others.
func (s *Service) BatchRecommend(ctx context.Context, userIDs []string, req Request) map[string][]string {
	start := time.Now()
	results := make([][]string, len(userIDs))

	// Process users concurrently with bounded worker pool
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.batchConcurrency) // semaphore

	for i, userID := range userIDs {
		wg.Add(1)
		go func(idx int, uid string) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			results[idx] = s.recommendForBatch(ctx, uid, req)
		}(i, userID)
	}
	wg.Wait()

	out := make(map[string][]string, len(userIDs))
	for i, uid := range userIDs {
		out[uid] = results[i]
	}
	s.log.Info().Int("users", len(userIDs)).Dur("elapsed", time.Since(start)).Msg("batch completed")
	return out
}

// Generates recommendations for a single user, capturing panics.
func (s *Service) recommendForBatch(ctx context.Context, userID string, req Request) (ids []string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("user_id", userID).Msg("batch: recommendation panicked")
			ids = []string{}
		}
	}()
	req.UserID = userID
	return s.Recommend(ctx, req)
}

// TrainModel fits the named algorithm when it supports training and reports
// whether training ran. The interaction memo is cleared first so training
// sees fresh data; cached results are dropped after a successful fit.
func (s *Service) TrainModel(ctx context.Context, algorithm string, params strategy.TrainParams) (bool, error) {
	canonical, inst := s.instance(algorithm, s.cfg)
	trainer, ok := inst.(strategy.Trainer)
	if !ok {
		s.log.Info().Str("algorithm", canonical).Msg("algorithm does not require training")
		return false, nil
	}

	s.store.Clear()
	start := time.Now()
	s.log.Info().Str("algorithm", canonical).Int("min_interactions", params.MinInteractions).
		Bool("save_cache", params.SaveCache).Msg("training model")

	_, err := guard(func() (struct{}, error) {
		return struct{}{}, trainer.Fit(ctx, params)
	})
	if err != nil {
		metrics.ObserveTraining(canonical, "error", time.Since(start))
		return false, fmt.Errorf("train %s: %w", canonical, err)
	}

	outcome := "fitted"
	if !inst.IsFitted() {
		outcome = "empty"
		s.log.Warn().Str("algorithm", canonical).Err(domain.ErrTrainingDataEmpty).Msg("model left unfitted")
	}
	metrics.ObserveTraining(canonical, outcome, time.Since(start))

	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Msg("result cache invalidation")
		}
	}
	s.log.Info().Str("algorithm", canonical).Dur("elapsed", time.Since(start)).Msg("model training completed")
	return true, nil
}

// ListAvailableAlgorithms returns every registered name, aliases included.
func (s *Service) ListAvailableAlgorithms() []string {
	return s.registry.Names()
}

// AlgorithmInfo describes the instance serving name with the service
// configuration. Unknown names describe the default algorithm.
func (s *Service) AlgorithmInfo(name string) domain.AlgorithmInfo {
	canonical, inst := s.instance(name, s.cfg)
	_, trains := inst.(strategy.Trainer)

	cfg := s.cfg.Map()
	if m, ok := inst.(interface {
		ModelInfo() (strategy.ModelInfo, bool)
	}); ok {
		if info, fitted := m.ModelInfo(); fitted {
			cfg["model"] = info
		}
	}

	return domain.AlgorithmInfo{
		Algorithm:        canonical,
		IsFitted:         inst.IsFitted(),
		RequiresTraining: trains,
		Config:           cfg,
	}
}

// SimilarItems returns the nearest neighbors of itemID from the item
// similarity model. It fails with domain.ErrModelNotFitted before training.
func (s *Service) SimilarItems(ctx context.Context, itemID string, k int) ([]domain.SimilarItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.KnownAlgorithm(strategy.NameItemCF) {
		return nil, fmt.Errorf("%s: %w", strategy.NameItemCF, domain.ErrAlgorithmNotFound)
	}
	_, inst := s.instance(strategy.NameItemCF, s.cfg)
	cf, ok := inst.(interface {
		SimilarItems(itemID string, k int) []domain.SimilarItem
	})
	if !ok {
		return nil, fmt.Errorf("%s: %w", strategy.NameItemCF, domain.ErrAlgorithmNotFound)
	}
	if !inst.IsFitted() {
		return nil, domain.ErrModelNotFitted
	}
	return cf.SimilarItems(itemID, normalizeK(k)), nil
}

// ClearCache drops cached strategy instances and cached results.
func (s *Service) ClearCache(ctx context.Context) error {
	s.mu.Lock()
	s.instances.Purge()
	s.mu.Unlock()

	s.log.Info().Msg("recommender cache cleared")
	if s.cache != nil {
		return s.cache.Clear(ctx)
	}
	return nil
}
