package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains restaurant_id -> set of connections and broadcasts messages.
// With Redis configured, events go through pub/sub so every instance delivers them once.
type Hub struct {
	// restaurantID -> map[clientID]*Client
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per restaurant
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishRestaurantEvent(restaurantID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to restaurant channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeRestaurant(restaurantID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a restaurant room. Starts the Redis subscription for the room on its
// first client, or on a later client when an earlier attempt failed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.RestaurantID] == nil {
		h.rooms[c.RestaurantID] = make(map[string]*Client)
	}
	if _, ok := h.subs[c.RestaurantID]; !ok && h.redisSub != nil {
		h.subscribeLocked(c.RestaurantID)
	}
	h.rooms[c.RestaurantID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined restaurant", zap.String("client_id", c.ID), zap.String("restaurant_id", c.RestaurantID.String()))
}

func (h *Hub) subscribeLocked(rid uuid.UUID) {
	cancel, err := h.redisSub.SubscribeRestaurant(rid, func(event string, payload []byte) {
		h.Broadcast(rid, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("redis subscribe failed", zap.String("restaurant_id", rid.String()), zap.Error(err))
		return
	}
	h.subs[rid] = cancel
}

// Unregister removes a client from its room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.RestaurantID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.RestaurantID)
			if cancel, ok := h.subs[c.RestaurantID]; ok {
				cancel()
				delete(h.subs, c.RestaurantID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left restaurant", zap.String("client_id", c.ID), zap.String("restaurant_id", c.RestaurantID.String()))
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

// Broadcast sends a message to all clients of a restaurant on this instance.
func (h *Hub) Broadcast(restaurantID uuid.UUID, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("broadcast encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[restaurantID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip; the client's next poll catches up
		}
	}
}

// Publish delivers an event to every instance. With Redis the subscriber callback performs the local
// broadcast, so local clients are not sent the event twice. A failed publish, or a room whose
// subscription could not be started, falls back to local delivery.
func (h *Hub) Publish(restaurantID uuid.UUID, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("publish encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	if h.redis != nil {
		err := h.redis.PublishRestaurantEvent(restaurantID, event, data)
		if err == nil {
			if h.subscribed(restaurantID) {
				return
			}
		} else {
			h.logger.Warn("redis publish failed, delivering locally", zap.String("restaurant_id", restaurantID.String()), zap.Error(err))
		}
	}
	h.Broadcast(restaurantID, event, json.RawMessage(data))
}

// subscribed reports whether local clients of the room receive pub/sub deliveries.
func (h *Hub) subscribed(restaurantID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.redisSub == nil {
		return true
	}
	_, ok := h.subs[restaurantID]
	return ok
}

// ClientCount returns the number of connected clients watching a restaurant.
func (h *Hub) ClientCount(restaurantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[restaurantID])
}
