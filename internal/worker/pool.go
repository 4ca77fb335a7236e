package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketstock/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueRecompute = "jobs:recompute"
	QueueIngest    = "jobs:ingest"

	JobRecompute = "recompute"
	JobIngest    = "ingest"
)

// Job is the generic envelope for all async tasks. Attempts counts the
// failed runs so far.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// RecomputePayload asks for a full recompute of one company.
type RecomputePayload struct {
	CompanyID string `json:"company_id"`
}

// IngestPayload asks for a fact pull over an inclusive window (YYYY-MM-DD).
type IngestPayload struct {
	CompanyID string `json:"company_id"`
	DateFrom  string `json:"date_from"`
	DateTo    string `json:"date_to"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

var _ service.RecomputeEnqueuer = (*Dispatcher)(nil)

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueRecompute pushes a recompute job for the company.
func (d *Dispatcher) EnqueueRecompute(ctx context.Context, companyID uuid.UUID) error {
	return d.enqueue(ctx, QueueRecompute, JobRecompute, RecomputePayload{CompanyID: companyID.String()})
}

// EnqueueIngest pushes an ingestion job for the company and window.
func (d *Dispatcher) EnqueueIngest(ctx context.Context, companyID uuid.UUID, from, to time.Time) error {
	return d.enqueue(ctx, QueueIngest, JobIngest, IngestPayload{
		CompanyID: companyID.String(),
		DateFrom:  from.Format(time.DateOnly),
		DateTo:    to.Format(time.DateOnly),
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// JobHandler runs one job payload.
type JobHandler interface {
	Handle(ctx context.Context, payload json.RawMessage) error
}

// WorkerHandlers holds the concrete handler for each job type.
type WorkerHandlers struct {
	Recompute JobHandler
	Ingest    JobHandler
}

// PoolConfig sizes the pool and bounds retries.
type PoolConfig struct {
	Size        int
	MaxAttempts int
}

// errPermanent marks a failure that retrying cannot fix.
var errPermanent = errors.New("permanent job failure")

// StartWorkerPool launches cfg.Size goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so an idle pool costs nothing.
// The returned WaitGroup completes once every worker has seen ctx end.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, cfg PoolConfig) *sync.WaitGroup {
	p := newProcessor(handlers, cfg.MaxAttempts,
		func(ctx context.Context, queue string, data []byte) error {
			return rdb.LPush(ctx, queue, data).Err()
		},
		func(ctx context.Context, queue string, job Job, reason string) {
			SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, reason, job.Attempts)
		},
	)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, p, id)
		}(i)
	}
	log.Info().Int("workers", cfg.Size).Int("max_attempts", p.maxAttempts).Msg("worker pool started")
	return &wg
}

func runWorker(ctx context.Context, rdb *redis.Client, p *processor, id int) {
	queues := []string{QueueIngest, QueueRecompute}
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Error().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

// processor dispatches one dequeued job and decides its fate on failure:
// requeued with one more attempt, or dead-lettered.
type processor struct {
	handlers    map[string]JobHandler
	maxAttempts int
	push        func(ctx context.Context, queue string, data []byte) error
	deadLetter  func(ctx context.Context, queue string, job Job, reason string)
}

func newProcessor(
	h *WorkerHandlers,
	maxAttempts int,
	push func(ctx context.Context, queue string, data []byte) error,
	deadLetter func(ctx context.Context, queue string, job Job, reason string),
) *processor {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	handlers := make(map[string]JobHandler, 2)
	if h != nil && h.Recompute != nil {
		handlers[JobRecompute] = h.Recompute
	}
	if h != nil && h.Ingest != nil {
		handlers[JobIngest] = h.Ingest
	}
	return &processor{handlers: handlers, maxAttempts: maxAttempts, push: push, deadLetter: deadLetter}
}

func (p *processor) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		p.deadLetter(ctx, queue, Job{Payload: json.RawMessage(fmt.Sprintf("%q", raw))}, "malformed envelope: "+err.Error())
		return
	}
	handler, ok := p.handlers[job.Type]
	if !ok {
		p.deadLetter(ctx, queue, job, fmt.Sprintf("no handler for job type %q", job.Type))
		return
	}

	start := time.Now()
	err := handler.Handle(ctx, job.Payload)
	if err == nil {
		log.Debug().Str("type", job.Type).Dur("duration", time.Since(start)).Msg("job done")
		return
	}
	if ctx.Err() != nil {
		// Shutting down mid-job: put it back untouched.
		p.requeue(context.Background(), queue, job)
		return
	}

	job.Attempts++
	switch {
	case errors.Is(err, service.ErrConfiguration), errors.Is(err, service.ErrValidation), errors.Is(err, errPermanent):
		p.deadLetter(ctx, queue, job, err.Error())
	case job.Attempts >= p.maxAttempts:
		p.deadLetter(ctx, queue, job, fmt.Sprintf("max attempts (%d) exceeded: %v", p.maxAttempts, err))
	default:
		log.Warn().
			Err(err).
			Str("type", job.Type).
			Int("attempt", job.Attempts).
			Msg("job failed, requeued")
		p.requeue(ctx, queue, job)
	}
}

func (p *processor) requeue(ctx context.Context, queue string, job Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("requeue: marshal failed")
		return
	}
	if err := p.push(ctx, queue, data); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("requeue: push failed")
	}
}
