package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketstock/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Locker guards a key against concurrent holders.
type Locker interface {
	// TryLock returns ok=false when another holder has the key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker implements Locker with SET NX PX and a per-holder token.
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		if err := releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Str("key", key).Msg("lock: release failed")
		}
	}
	return release, true, nil
}

func recomputeLockKey(companyID uuid.UUID) string {
	return "lock:recompute:" + companyID.String()
}

// ── Recompute ──

// RecomputeWorker runs RecomputeAll for one company under its lock.
type RecomputeWorker struct {
	recompute service.RecomputeService
	locker    Locker
	lockTTL   time.Duration
}

func NewRecomputeWorker(recompute service.RecomputeService, locker Locker, lockTTL time.Duration) *RecomputeWorker {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &RecomputeWorker{recompute: recompute, locker: locker, lockTTL: lockTTL}
}

// Handle skips the job when a recompute of the same company is already
// running; the scheduler's next tick picks up anything it missed.
func (w *RecomputeWorker) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload RecomputePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("recompute payload: %v: %w", err, errPermanent)
	}
	companyID, err := uuid.Parse(payload.CompanyID)
	if err != nil {
		return fmt.Errorf("recompute company_id %q: %w", payload.CompanyID, errPermanent)
	}

	release, ok, err := w.locker.TryLock(ctx, recomputeLockKey(companyID), w.lockTTL)
	if err != nil {
		return fmt.Errorf("recompute lock: %w", err)
	}
	if !ok {
		log.Info().Str("company_id", companyID.String()).Msg("recompute_worker: already running, skipped")
		return nil
	}
	defer release()

	report, err := w.recompute.RecomputeAll(ctx, companyID)
	if err != nil {
		log.Error().Err(err).Str("company_id", companyID.String()).Msg("recompute_worker: failed")
		return err
	}
	log.Info().
		Str("company_id", companyID.String()).
		Int("recommendations", report.Recommendations.Written).
		Int("supplier", report.Supplier.Written).
		Int("priority", report.Priority.Written).
		Dur("duration", report.Duration).
		Msg("recompute_worker: done")
	return nil
}

// ── Ingest ──

// IngestWorker pulls marketplace facts for one company and window.
type IngestWorker struct {
	ingestion service.IngestionService
}

func NewIngestWorker(ingestion service.IngestionService) *IngestWorker {
	return &IngestWorker{ingestion: ingestion}
}

func (w *IngestWorker) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload IngestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("ingest payload: %v: %w", err, errPermanent)
	}
	companyID, err := uuid.Parse(payload.CompanyID)
	if err != nil {
		return fmt.Errorf("ingest company_id %q: %w", payload.CompanyID, errPermanent)
	}
	from, err := time.Parse(time.DateOnly, payload.DateFrom)
	if err != nil {
		return fmt.Errorf("ingest date_from %q: %w", payload.DateFrom, errPermanent)
	}
	to, err := time.Parse(time.DateOnly, payload.DateTo)
	if err != nil {
		return fmt.Errorf("ingest date_to %q: %w", payload.DateTo, errPermanent)
	}

	resp, err := w.ingestion.Ingest(ctx, companyID, from, to)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range resp.Marketplaces {
		if r.Error != "" {
			failed++
		}
	}
	log.Info().
		Str("company_id", companyID.String()).
		Int("marketplaces", len(resp.Marketplaces)).
		Int("skipped", failed).
		Msg("ingest_worker: done")
	return nil
}
