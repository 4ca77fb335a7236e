package worker

// scheduler.go
// Background goroutine that periodically enqueues a recompute job for every
// company and, when enabled, an ingestion job over a trailing window.

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CompanyLister lists the tenants the scheduler fans out to.
type CompanyLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Enqueuer is the subset of Dispatcher the scheduler uses.
type Enqueuer interface {
	EnqueueRecompute(ctx context.Context, companyID uuid.UUID) error
	EnqueueIngest(ctx context.Context, companyID uuid.UUID, from, to time.Time) error
}

// SchedulerConfig holds all dependencies for the scheduler goroutine.
type SchedulerConfig struct {
	Companies         CompanyLister
	Enqueuer          Enqueuer
	RecomputeInterval time.Duration
	IngestInterval    time.Duration // 0 disables scheduled ingestion
	IngestLookback    int           // days, today included
	Now               func() time.Time
}

// StartScheduler launches the ticker goroutine. It respects the context for
// graceful shutdown.
func StartScheduler(ctx context.Context, cfg SchedulerConfig) {
	if cfg.RecomputeInterval <= 0 {
		cfg.RecomputeInterval = 6 * time.Hour
	}
	if cfg.IngestLookback < 1 {
		cfg.IngestLookback = 2
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	go func() {
		recompute := time.NewTicker(cfg.RecomputeInterval)
		defer recompute.Stop()

		// A nil channel never fires, which disables the ingest case.
		var ingestC <-chan time.Time
		if cfg.IngestInterval > 0 {
			ingest := time.NewTicker(cfg.IngestInterval)
			defer ingest.Stop()
			ingestC = ingest.C
		}

		log.Info().
			Dur("recompute_interval", cfg.RecomputeInterval).
			Dur("ingest_interval", cfg.IngestInterval).
			Msg("scheduler: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("scheduler: shutting down")
				return
			case <-recompute.C:
				enqueueRecomputeAll(ctx, cfg)
			case <-ingestC:
				enqueueIngestAll(ctx, cfg)
			}
		}
	}()
}

func enqueueRecomputeAll(ctx context.Context, cfg SchedulerConfig) int {
	ids, err := cfg.Companies.ListIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: failed to list companies")
		return 0
	}
	queued := 0
	for _, id := range ids {
		if err := cfg.Enqueuer.EnqueueRecompute(ctx, id); err != nil {
			log.Error().Err(err).Str("company_id", id.String()).Msg("scheduler: enqueue recompute failed")
			continue
		}
		queued++
	}
	log.Info().Int("companies", len(ids)).Int("queued", queued).Msg("scheduler: recompute tick")
	return queued
}

func enqueueIngestAll(ctx context.Context, cfg SchedulerConfig) int {
	ids, err := cfg.Companies.ListIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: failed to list companies")
		return 0
	}
	to := cfg.Now().UTC()
	from := to.AddDate(0, 0, -(cfg.IngestLookback - 1))
	queued := 0
	for _, id := range ids {
		if err := cfg.Enqueuer.EnqueueIngest(ctx, id, from, to); err != nil {
			log.Error().Err(err).Str("company_id", id.String()).Msg("scheduler: enqueue ingest failed")
			continue
		}
		queued++
	}
	log.Info().Int("companies", len(ids)).Int("queued", queued).Msg("scheduler: ingest tick")
	return queued
}
