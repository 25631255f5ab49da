package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/pkg/queue"
)

// TokenStamper records API token usage.
type TokenStamper interface {
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

// OrderSink receives exported order events.
type OrderSink interface {
	PublishOrderEvent(ctx context.Context, ev queue.OrderEventPayload) error
}

// JobQueue is the queue the processor drains.
type JobQueue interface {
	Dequeue(ctx context.Context, block time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Processor runs background jobs: API token last-used stamps and order event export.
type Processor struct {
	tokens  TokenStamper
	sink    OrderSink
	queue   JobQueue
	logger  *zap.Logger
	block   time.Duration
	backoff time.Duration
	pending sync.WaitGroup
}

// NewProcessor creates a job processor. sink may be nil, in which case order events are consumed
// and dropped.
func NewProcessor(tokens TokenStamper, sink OrderSink, q JobQueue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		tokens:  tokens,
		sink:    sink,
		queue:   q,
		logger:  logger,
		block:   5 * time.Second,
		backoff: queue.RetryBackoff,
	}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeTokenTouch:
		var payload queue.TokenTouchPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if err := p.tokens.Touch(ctx, payload.TokenID, payload.UsedAt); err != nil {
			return fmt.Errorf("touch token %s: %w", payload.TokenID, err)
		}
		return nil
	case queue.JobTypeOrderEvent:
		var payload queue.OrderEventPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if p.sink == nil {
			p.logger.Debug("order event dropped, no export sink", zap.String("order_id", payload.OrderID.String()))
			return nil
		}
		return p.sink.PublishOrderEvent(ctx, payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run starts the worker loop: dequeue, process, retry on error. Failed jobs wait out the backoff
// off the loop so other jobs keep flowing. It returns when ctx is cancelled and pending retries
// have been re-enqueued.
func (p *Processor) Run(ctx context.Context) {
	defer p.pending.Wait()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, p.block)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			p.retryLater(ctx, job)
		}
	}
}

// retryLater re-enqueues job after the backoff. Shutdown cuts the wait short but still re-enqueues.
func (p *Processor) retryLater(ctx context.Context, job *queue.Job) {
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.sleep(ctx)
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.queue.Retry(rctx, job); err != nil {
			p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}()
}

func (p *Processor) sleep(ctx context.Context) {
	if p.backoff <= 0 {
		return
	}
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
