package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	tokenID := uuid.New()
	require.NoError(t, q.EnqueueTokenTouch(ctx, TokenTouchPayload{TokenID: tokenID, UsedAt: time.Now()}))
	require.NoError(t, q.EnqueueOrderEvent(ctx, OrderEventPayload{Event: "order_created", OrderID: uuid.New()}))

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeTokenTouch, job.Type)
	var touch TokenTouchPayload
	require.NoError(t, json.Unmarshal(job.Payload, &touch))
	assert.Equal(t, tokenID, touch.TokenID)

	job, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeOrderEvent, job.Type)
}

func TestQueue_RetryThenDeadLetter(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueOrderEvent(ctx, OrderEventPayload{Event: "order_updated", OrderID: uuid.New()}))
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		assert.Equal(t, i, job.Attempt)
		items, err := mr.List(QueueOrderEvents)
		require.NoError(t, err)
		assert.Len(t, items, 1)
		job, err = q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, job)
	}

	require.NoError(t, q.Retry(ctx, job))
	n, err := q.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, mr.Exists(QueueOrderEvents))
}

func TestQueue_InvalidEntrySkipped(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Push(QueueTokenTouch, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}
