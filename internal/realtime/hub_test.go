package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(rid uuid.UUID) *Client {
	return &Client{ID: uuid.NewString(), RestaurantID: rid, send: make(chan WSMessage, 8)}
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return WSMessage{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %s", msg.Event)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestHub_LocalRooms(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	harbor, sky := uuid.New(), uuid.New()
	a, b := testClient(harbor), testClient(sky)
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 1, hub.ClientCount(harbor))

	hub.Publish(harbor, "order_created", map[string]string{"id": "o-1"})

	msg := receive(t, a)
	assert.Equal(t, "order_created", msg.Event)
	assert.JSONEq(t, `{"id":"o-1"}`, string(msg.Data))
	assertSilent(t, b)

	hub.Unregister(a)
	assert.Zero(t, hub.ClientCount(harbor))
	hub.Publish(harbor, "order_updated", map[string]string{"id": "o-1"})
	assertSilent(t, a)
}

func newRedisHub(t *testing.T, mr *miniredis.Miniredis) *Hub {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ps := NewRedisPubSub(rdb, zap.NewNop())
	return NewHub(zap.NewNop(), ps, ps)
}

func TestHub_FanOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	first, second := newRedisHub(t, mr), newRedisHub(t, mr)
	rid := uuid.New()

	local, remote := testClient(rid), testClient(rid)
	first.Register(local)
	second.Register(remote)
	t.Cleanup(func() {
		first.Unregister(local)
		second.Unregister(remote)
	})

	first.Publish(rid, "order_updated", json.RawMessage(`{"status":"Preparing"}`))

	for _, c := range []*Client{local, remote} {
		msg := receive(t, c)
		assert.Equal(t, "order_updated", msg.Event)
		assert.JSONEq(t, `{"status":"Preparing"}`, string(msg.Data))
	}
	assertSilent(t, local)
}

func TestHub_PublishFallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	hub := newRedisHub(t, mr)
	rid := uuid.New()
	c := testClient(rid)
	hub.Register(c)
	mr.Close()

	hub.Publish(rid, "order_created", map[string]int{"n": 1})
	require.Equal(t, "order_created", receive(t, c).Event)
}

// loopbackBus hands published events straight to subscribed handlers. Subscribe fails while
// failures remain.
type loopbackBus struct {
	mu       sync.Mutex
	failures int
	calls    int
	handlers map[uuid.UUID]func(string, []byte)
}

func (b *loopbackBus) SubscribeRestaurant(rid uuid.UUID, handler func(string, []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failures > 0 {
		b.failures--
		return nil, errors.New("subscribe refused")
	}
	if b.handlers == nil {
		b.handlers = map[uuid.UUID]func(string, []byte){}
	}
	b.handlers[rid] = handler
	return func() {
		b.mu.Lock()
		delete(b.handlers, rid)
		b.mu.Unlock()
	}, nil
}

func (b *loopbackBus) PublishRestaurantEvent(rid uuid.UUID, event string, payload []byte) error {
	b.mu.Lock()
	h := b.handlers[rid]
	b.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func TestHub_FailedSubscription(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		clients   int
		wantCalls int
	}{
		{"delivers locally while unsubscribed", 1, 1, 1},
		{"next client retries the subscription", 1, 2, 2},
		{"subscribes once when healthy", 0, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &loopbackBus{failures: tt.failures}
			hub := NewHub(zap.NewNop(), bus, bus)
			rid := uuid.New()
			clients := make([]*Client, tt.clients)
			for i := range clients {
				clients[i] = testClient(rid)
				hub.Register(clients[i])
			}
			assert.Equal(t, tt.wantCalls, bus.calls)

			hub.Publish(rid, "order_created", map[string]string{"id": "o-1"})

			for _, c := range clients {
				assert.Equal(t, "order_created", receive(t, c).Event)
				assertSilent(t, c)
			}
		})
	}
}

func TestNewSyncConfig(t *testing.T) {
	cfg := NewSyncConfig(5*time.Second, 30*time.Second, time.Minute, time.Minute)
	assert.Equal(t, SyncConfig{OrderPollSeconds: 5, MenuPollSeconds: 30, PortalRefreshSeconds: 60, NewOrderWindowSeconds: 60}, cfg)
	assert.Equal(t, 5*time.Second, cfg.OrderPoll())
	assert.Equal(t, time.Minute, cfg.NewOrderWindow())
}
