package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketstock/internal/app"
	"marketstock/internal/config"
	"marketstock/internal/infra"
	"marketstock/internal/router"
	"marketstock/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	svc, err := app.Build(cfg, db, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Worker handlers are wired here so the pool shares the API's services.
	workerHandlers := &worker.WorkerHandlers{
		Recompute: worker.NewRecomputeWorker(svc.Recompute, worker.NewRedisLocker(rdb), cfg.RecomputeLockTTL),
		Ingest:    worker.NewIngestWorker(svc.Ingestion),
	}
	wg := worker.StartWorkerPool(ctx, rdb, workerHandlers, worker.PoolConfig{
		Size:        cfg.WorkerPoolSize,
		MaxAttempts: cfg.JobMaxAttempts,
	})

	worker.StartScheduler(ctx, worker.SchedulerConfig{
		Companies:         svc.Companies,
		Enqueuer:          svc.Dispatcher,
		RecomputeInterval: cfg.RecomputeInterval,
		IngestInterval:    cfg.IngestInterval,
		IngestLookback:    cfg.IngestLookback,
	})

	r := router.New(ctx, cfg, db, rdb, svc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("marketstock listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Workers put in-flight jobs back on the queue once ctx is cancelled.
	cancel()
	wg.Wait()
	log.Info().Msg("server exited")
}
