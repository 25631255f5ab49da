package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuportal/backend/pkg/queue"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_PublishOrderEvent(t *testing.T) {
	w := &recordingWriter{}
	sink := newSink(w, nil)
	ev := queue.OrderEventPayload{
		Event:        "order_updated",
		OrderID:      uuid.New(),
		RestaurantID: uuid.New(),
		Status:       "Ready",
		Order:        json.RawMessage(`{"status":"Ready"}`),
		OccurredAt:   time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC),
	}

	require.NoError(t, sink.PublishOrderEvent(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, ev.RestaurantID.String(), string(msg.Key))
	assert.Equal(t, ev.OccurredAt, msg.Time)
	assert.Equal(t, []kafka.Header{{Key: "event", Value: []byte("order_updated")}, {Key: "status", Value: []byte("Ready")}}, msg.Headers)

	var decoded queue.OrderEventPayload
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.OrderID, decoded.OrderID)
	assert.JSONEq(t, `{"status":"Ready"}`, string(decoded.Order))

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_WriteError(t *testing.T) {
	sink := newSink(&recordingWriter{err: errors.New("leader not available")}, nil)
	err := sink.PublishOrderEvent(context.Background(), queue.OrderEventPayload{Event: "order_created"})
	assert.ErrorContains(t, err, "leader not available")
}
