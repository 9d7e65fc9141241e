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

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riftstats/props-api/internal/config"
	"github.com/riftstats/props-api/internal/handlers"
	"github.com/riftstats/props-api/internal/logic"
	"github.com/riftstats/props-api/internal/models"
	"github.com/riftstats/props-api/internal/store"
	"github.com/riftstats/props-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch, err := connectClickHouse(ctx, cfg.ClickHouseURL)
	if err != nil {
		sugar.Fatalw("ClickHouse connection failed", "error", err)
	}
	defer ch.Close()

	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		sugar.Fatalw("Postgres connection failed", "error", err)
	}
	defer pg.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("Invalid Redis URL", "error", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// One-time startup load: the observation index and the outcome history
	// are immutable for the life of the process.
	var (
		observations []models.Observation
		outcomes     []models.LabeledSample
	)
	g, loadCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if observations, err = store.LoadObservations(loadCtx, ch); err != nil {
			return fmt.Errorf("load observations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if outcomes, err = store.LoadOutcomes(loadCtx, pg); err != nil {
			return fmt.Errorf("load outcomes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		sugar.Fatalw("Startup load failed", "error", err)
	}

	index := store.NewIndex(observations)
	sugar.Infow("Observation index built",
		"observations", index.Size(),
		"players", len(index.Players()),
		"outcomes", len(outcomes),
	)

	prediction := logic.NewPredictionService(index, outcomes, logger)

	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount:   cfg.WorkerCount,
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Postgres:      pg,
		Redis:         rdb,
		Logger:        logger,
	})
	pool.Start(ctx)
	defer pool.Stop()

	h := handlers.New(handlers.Config{
		OutcomePool: pool,
		Postgres:    pg,
		ClickHouse:  ch,
		Redis:       rdb,
		Cache:       store.NewResultCache(rdb, cfg.CacheTTL),
		Logger:      logger,
		Prediction:  prediction,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predictions", h.PostPrediction)
		r.Post("/predictions/curve", h.PostPredictionCurve)
		r.Post("/outcomes", h.PostOutcome)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sugar.Infow("Server listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Server shutdown failed", "error", err)
	}
}

func connectClickHouse(ctx context.Context, url string) (driver.Conn, error) {
	opts, err := clickhouse.ParseDSN(url)
	if err != nil {
		return nil, fmt.Errorf("parse ClickHouse DSN: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ClickHouse: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("ping ClickHouse: %w", err)
	}
	return conn, nil
}
