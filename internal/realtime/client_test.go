package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
)

type tokenGate map[string]*auth.Principal

func (g tokenGate) Authenticate(_ context.Context, token string) (*auth.Principal, error) {
	if p, ok := g[token]; ok {
		return p, nil
	}
	return nil, apperr.Authentication("invalid or expired token")
}

type allowList map[uuid.UUID]bool

func (a allowList) Restaurant(_ context.Context, _ *auth.Principal, id uuid.UUID) (*models.Restaurant, error) {
	if !a[id] {
		return nil, apperr.Forbidden("not authorized for this restaurant")
	}
	return &models.Restaurant{ID: id}, nil
}

func wsServer(t *testing.T, hub *Hub, rid uuid.UUID) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gate := tokenGate{"tablet-token": {Kind: auth.CredentialAPIToken, APIToken: &models.APIToken{Name: "kitchen"}}}
	sync := NewSyncConfig(5*time.Second, 30*time.Second, time.Minute, time.Minute)
	r := gin.New()
	r.GET("/ws", ServeWs(hub, NewUpgrader([]string{"http://portal.example.com"}), gate, allowList{rid: true}, sync, zap.NewNop()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestServeWs_SyncConfigThenEvents(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	rid := uuid.New()
	base := wsServer(t, hub, rid)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws?restaurantId="+rid.String()+"&token=tablet-token", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first WSMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, EventSyncConfig, first.Event)
	assert.JSONEq(t, `{"orderPollSeconds":5,"menuPollSeconds":30,"portalRefreshSeconds":60,"newOrderWindowSeconds":60}`, string(first.Data))

	require.Eventually(t, func() bool { return hub.ClientCount(rid) == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(rid, "order_created", map[string]string{"status": "New"})

	var next WSMessage
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "order_created", next.Event)

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "ping"}))
	var pong WSMessage
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, EventPong, pong.Event)

	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount(rid) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWs_Rejections(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	rid := uuid.New()
	base := wsServer(t, hub, rid)

	tests := []struct {
		name   string
		query  string
		header http.Header
		status int
	}{
		{"bad restaurant id", "?restaurantId=nope&token=tablet-token", nil, http.StatusBadRequest},
		{"unknown token", "?restaurantId=" + rid.String() + "&token=guess", nil, http.StatusUnauthorized},
		{"foreign restaurant", "?restaurantId=" + uuid.NewString() + "&token=tablet-token", nil, http.StatusForbidden},
		{"disallowed origin", "?restaurantId=" + rid.String() + "&token=tablet-token", http.Header{"Origin": {"http://evil.example.com"}}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(base+"/ws"+tt.query, tt.header)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.Zero(t, hub.ClientCount(rid))
}
