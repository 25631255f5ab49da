package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueTokenTouch is the Redis list key for API token last-used stamps.
	QueueTokenTouch = "worker:token_touch"
	// QueueOrderEvents is the Redis list key for order events awaiting export.
	QueueOrderEvents = "worker:order_events"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeTokenTouch JobType = "token_touch"
	JobTypeOrderEvent JobType = "order_event"
)

var queueFor = map[JobType]string{
	JobTypeTokenTouch: QueueTokenTouch,
	JobTypeOrderEvent: QueueOrderEvents,
}

// TokenTouchPayload stamps last_used_at on an API token.
type TokenTouchPayload struct {
	TokenID uuid.UUID `json:"token_id"`
	UsedAt  time.Time `json:"used_at"`
}

// OrderEventPayload is an order_created / order_updated event bound for the export sink.
type OrderEventPayload struct {
	Event        string          `json:"event"`
	OrderID      uuid.UUID       `json:"order_id"`
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	Status       string          `json:"status"`
	Order        json.RawMessage `json:"order"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueTokenTouch enqueues a last-used stamp for an API token.
func (q *Queue) EnqueueTokenTouch(ctx context.Context, payload TokenTouchPayload) error {
	id, err := q.enqueue(ctx, JobTypeTokenTouch, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued token touch job", zap.String("job_id", id), zap.String("token_id", payload.TokenID.String()))
	return nil
}

// EnqueueOrderEvent enqueues an order event for export.
func (q *Queue) EnqueueOrderEvent(ctx context.Context, payload OrderEventPayload) error {
	id, err := q.enqueue(ctx, JobTypeOrderEvent, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued order event job", zap.String("job_id", id),
		zap.String("event", payload.Event), zap.String("order_id", payload.OrderID.String()))
	return nil
}

func (q *Queue) enqueue(ctx context.Context, t JobType, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, queueFor[t], raw).Err(); err != nil {
		return "", fmt.Errorf("rpush: %w", err)
	}
	return job.ID, nil
}

// Dequeue waits up to block for a job on any work queue. A nil job with nil error means the
// wait timed out or the entry was unreadable.
func (q *Queue) Dequeue(ctx context.Context, block time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, block, QueueTokenTouch, QueueOrderEvents).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("queue", result[0]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	key, ok := queueFor[job.Type]
	if !ok {
		return fmt.Errorf("unknown job type %q", job.Type)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// DeadLetters returns the number of jobs parked in the DLQ.
func (q *Queue) DeadLetters(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueDLQ).Result()
}
