package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/recommendation-engine/internal/cache"
	"github.com/actuallystonmai/recommendation-engine/internal/config"
	"github.com/actuallystonmai/recommendation-engine/internal/handler"
	"github.com/actuallystonmai/recommendation-engine/internal/interactions"
	"github.com/actuallystonmai/recommendation-engine/internal/logging"
	"github.com/actuallystonmai/recommendation-engine/internal/repository"
	"github.com/actuallystonmai/recommendation-engine/internal/router"
	"github.com/actuallystonmai/recommendation-engine/internal/service"
	"github.com/actuallystonmai/recommendation-engine/migrations"
	"github.com/actuallystonmai/recommendation-engine/seeds"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// ------------ PostgreSQL ---------------
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.PoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool, log); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	log.Info().Msg("connected to PostgreSQL")

	// ------------ Run Migrations ---------------
	// for migrate-down using CLI command
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := migrations.Down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Info().Msg("migrations dropped")
		return nil
	}

	if cfg.Database.MigrateOnStart {
		if err := migrations.Up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		log.Info().Msg("migrations applied")
	}

	repo := repository.New(pool)

	// ------------ Setup Seed Data ---------------
	if cfg.Database.Seed {
		if err := seeds.Setup(ctx, repo, seeds.DefaultOptions(), logging.Component(log, "seed")); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	store := interactions.NewStore(repo, interactions.Options{
		MemoSize:        cfg.Store.MemoSize,
		MemoTTL:         cfg.Store.MemoTTL,
		BreakerFailures: cfg.Store.BreakerFailures,
		BreakerTimeout:  cfg.Store.BreakerTimeout,
		LoadTimeout:     cfg.Store.LoadTimeout,
	}, log)

	// ------------ Redis ---------------
	opts := service.Options{
		DefaultAlgorithm:  cfg.Recommender.DefaultAlgorithm,
		Config:            cfg.StrategyConfig(),
		InstanceCacheSize: cfg.Recommender.InstanceCacheSize,
		BatchConcurrency:  cfg.Recommender.BatchConcurrency,
	}
	if cfg.Redis.Enabled {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()

		rc := cache.NewCache(client, cfg.Redis.CacheTTL)
		if err := rc.Ping(ctx); err != nil {
			// result cache is optional
			log.Warn().Err(err).Msg("redis unreachable, result cache disabled")
		} else {
			opts.Cache = rc
			log.Info().Msg("connected to Redis")
		}
	}

	svc, err := service.NewService(service.DefaultRegistry(), store, opts, log)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	// ---------------- Server --------------------
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(handler.NewHandler(svc, log), router.Options{
			RequestTimeout: cfg.Server.RequestTimeout,
			RateLimit:      cfg.Server.RateLimit,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("default_algorithm", svc.DefaultAlgorithm()).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		log.Info().Int("attempt", i+1).Msg("waiting for database")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after 30s")
}
