package worker

// dlq.go: dead letter queue.
// Jobs that exhaust their attempts, or fail permanently, are parked here
// until an operator replays or drops them. One Redis list per source queue:
// dlq:{original_queue}

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	CompanyID     string          `json:"company_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // ISO 8601
	Attempts      int             `json:"attempts"`
}

// SendToDLQ pushes a failed job to the dead letter queue for manual inspection.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		CompanyID:     payloadCompany(payload),
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queue
	if err := rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push to DLQ")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("company_id", entry.CompanyID).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job moved to dead letter queue")
}

// DLQLength returns the number of entries in a DLQ for monitoring.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// payloadCompany pulls company_id out of a job payload, if it has one.
func payloadCompany(payload json.RawMessage) string {
	var p struct {
		CompanyID string `json:"company_id"`
	}
	if json.Unmarshal(payload, &p) != nil {
		return ""
	}
	return p.CompanyID
}

// ErrUnknownQueue is returned for a queue name the pool does not serve.
var ErrUnknownQueue = errors.New("unknown queue")

func knownQueue(queue string) bool {
	return queue == QueueRecompute || queue == QueueIngest
}

// PeekDLQ returns up to limit entries, newest first, without removing them.
func PeekDLQ(ctx context.Context, rdb *redis.Client, queue string, limit int64) ([]DLQEntry, error) {
	if !knownQueue(queue) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueue, queue)
	}
	raw, err := rdb.LRange(ctx, DLQPrefix+queue, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raw))
	for _, r := range raw {
		var e DLQEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: unreadable entry")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ReplayDLQ moves up to limit of the oldest entries back onto their queue
// with a fresh attempt count. Entries that no longer decode are dropped.
func ReplayDLQ(ctx context.Context, rdb *redis.Client, queue string, limit int) (int, error) {
	if !knownQueue(queue) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownQueue, queue)
	}
	replayed := 0
	for replayed < limit {
		raw, err := rdb.RPop(ctx, DLQPrefix+queue).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return replayed, err
		}
		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.JobType == "" {
			log.Warn().Str("queue", queue).Msg("dlq: dropping entry that cannot be replayed")
			continue
		}
		job, err := json.Marshal(Job{Type: e.JobType, Payload: e.Payload})
		if err != nil {
			return replayed, err
		}
		if err := rdb.LPush(ctx, queue, job).Err(); err != nil {
			// Put it back so nothing is lost.
			_ = rdb.RPush(ctx, DLQPrefix+queue, raw).Err()
			return replayed, err
		}
		replayed++
	}
	if replayed > 0 {
		log.Info().Str("queue", queue).Int("replayed", replayed).Msg("dlq: jobs replayed")
	}
	return replayed, nil
}

// DLQDepths reports the size of every queue's DLQ, keyed by source queue.
func DLQDepths(ctx context.Context, rdb *redis.Client) (map[string]int64, error) {
	out := make(map[string]int64, 2)
	for _, q := range []string{QueueRecompute, QueueIngest} {
		n, err := DLQLength(ctx, rdb, q)
		if err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, nil
}
