// Command train fits the item similarity model offline and persists it where
// the server loads it from on startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/recommendation-engine/internal/config"
	"github.com/actuallystonmai/recommendation-engine/internal/domain"
	"github.com/actuallystonmai/recommendation-engine/internal/interactions"
	"github.com/actuallystonmai/recommendation-engine/internal/logging"
	"github.com/actuallystonmai/recommendation-engine/internal/repository"
	"github.com/actuallystonmai/recommendation-engine/internal/service"
	"github.com/actuallystonmai/recommendation-engine/internal/strategy"
	"github.com/actuallystonmai/recommendation-engine/seeds"
)

// eventsFile is the layout read by -events.
type eventsFile struct {
	Items  []string       `json:"items"`
	Events []domain.Event `json:"events"`
}

func main() {
	// Parse flags
	algorithm := flag.String("algorithm", strategy.NameItemCF, "Algorithm to train")
	minInteractions := flag.Int("min-interactions", 2, "Minimum events per (user, item) pair")
	saveCache := flag.Bool("save-cache", true, "Persist the similarity index")
	eventsPath := flag.String("events", "", "Train from a JSON events file instead of the database")
	demo := flag.Bool("demo", false, "Train on generated seed data instead of the database")
	testUser := flag.String("test-user", "test_user", "User for the smoke recommendation")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := openSource(ctx, cfg, *eventsPath, *demo)
	if err != nil {
		log.Fatal().Err(err).Msg("open interaction source")
	}
	defer closeSrc()

	params := strategy.TrainParams{MinInteractions: *minInteractions, SaveCache: *saveCache}
	if err := train(ctx, cfg, src, *algorithm, *testUser, params, log); err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
}

func openSource(ctx context.Context, cfg *config.Config, eventsPath string, demo bool) (interactions.Source, func(), error) {
	switch {
	case eventsPath != "":
		data, err := os.ReadFile(eventsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read events file: %w", err)
		}
		var f eventsFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, nil, fmt.Errorf("decode events file: %w", err)
		}
		return interactions.NewMemorySource(f.Items, f.Events), func() {}, nil
	case demo:
		items, events := seeds.Generate(seeds.DefaultOptions())
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		return interactions.NewMemorySource(ids, events), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return repository.New(pool), pool.Close, nil
}

func train(ctx context.Context, cfg *config.Config, src interactions.Source, algorithm, testUser string,
	params strategy.TrainParams, log zerolog.Logger) error {
	store := interactions.NewStore(src, interactions.Options{
		MemoSize:        cfg.Store.MemoSize,
		MemoTTL:         cfg.Store.MemoTTL,
		BreakerFailures: cfg.Store.BreakerFailures,
		BreakerTimeout:  cfg.Store.BreakerTimeout,
		LoadTimeout:     cfg.Store.LoadTimeout,
	}, log)

	svc, err := service.NewService(service.DefaultRegistry(), store, service.Options{
		DefaultAlgorithm: cfg.Recommender.DefaultAlgorithm,
		Config:           cfg.StrategyConfig(),
	}, log)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	if !svc.KnownAlgorithm(algorithm) {
		return fmt.Errorf("%s: %w", algorithm, domain.ErrAlgorithmNotFound)
	}

	log.Info().Str("algorithm", algorithm).Int("min_interactions", params.MinInteractions).
		Bool("save_cache", params.SaveCache).Msg("starting training")

	trained, err := svc.TrainModel(ctx, algorithm, params)
	if err != nil {
		return err
	}
	if !trained {
		log.Warn().Str("algorithm", algorithm).Msg("training skipped, algorithm does not require training")
		return nil
	}

	info := svc.AlgorithmInfo(algorithm)
	log.Info().Str("algorithm", info.Algorithm).Bool("is_fitted", info.IsFitted).
		Interface("config", info.Config).Msg("model info")

	recs := svc.Recommend(ctx, service.Request{
		UserID:           testUser,
		Algorithm:        algorithm,
		K:                5,
		FilterInteracted: true,
	})
	log.Info().Str("user_id", testUser).Strs("recommendations", recs).Msg("smoke recommendation")
	return nil
}
