package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
)

// Sync events sent by the server.
const (
	EventSyncConfig = "sync_config"
	EventPong       = "pong"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection watching one restaurant.
type Client struct {
	ID           string
	RestaurantID uuid.UUID
	Actor        string
	JoinedAt     time.Time
	hub          *Hub
	conn         *websocket.Conn
	send         chan WSMessage
	logger       *zap.Logger
}

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// RestaurantGuard checks a principal may watch a restaurant.
type RestaurantGuard interface {
	Restaurant(ctx context.Context, p *auth.Principal, id uuid.UUID) (*models.Restaurant, error)
}

// NewUpgrader builds a websocket upgrader for the CORS allow-list. "*" allows every origin;
// requests without an Origin header (non-browser clients) are always accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowAll || allowed[strings.TrimRight(origin, "/")]
		},
	}
}

// ServeWs handles GET /ws?restaurantId=&token=, authenticating through the same gate as the REST API.
// The first message on a new connection is the sync_config event.
func ServeWs(hub *Hub, upgrader *websocket.Upgrader, gate Authenticator, guard RestaurantGuard, sync SyncConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		restaurantID, err := uuid.Parse(c.Query("restaurantId"))
		if err != nil {
			response.BadRequest(c, "restaurantId required")
			return
		}
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		ctx := c.Request.Context()
		p, err := gate.Authenticate(ctx, token)
		if err != nil {
			response.Error(c, err)
			return
		}
		if _, err := guard.Restaurant(ctx, p, restaurantID); err != nil {
			response.Error(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:           uuid.New().String(),
			RestaurantID: restaurantID,
			Actor:        p.Actor(),
			JoinedAt:     time.Now(),
			hub:          hub,
			conn:         conn,
			send:         make(chan WSMessage, 256),
			logger:       logger,
		}
		if data, err := json.Marshal(sync); err == nil {
			client.send <- WSMessage{Event: EventSyncConfig, Data: data}
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump keeps the connection alive and answers pings. Clients do not mutate state over the socket;
// every change goes through the REST API so the gate and the lifecycle checks apply.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.String("client_id", c.ID), zap.Error(err))
			}
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "ping":
			select {
			case c.send <- WSMessage{Event: EventPong}:
			default:
			}
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
