package realtime

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/menuportal/backend/pkg/response"
)

// SyncConfig tells clients how often to poll. Clients keep polling even while connected to the push
// channel; a missed push is caught by the next poll.
type SyncConfig struct {
	OrderPollSeconds      int `json:"orderPollSeconds"`
	MenuPollSeconds       int `json:"menuPollSeconds"`
	PortalRefreshSeconds  int `json:"portalRefreshSeconds"`
	NewOrderWindowSeconds int `json:"newOrderWindowSeconds"`
}

// NewSyncConfig converts durations to whole seconds.
func NewSyncConfig(orderPoll, menuPoll, portalRefresh, newOrderWindow time.Duration) SyncConfig {
	return SyncConfig{
		OrderPollSeconds:      int(orderPoll / time.Second),
		MenuPollSeconds:       int(menuPoll / time.Second),
		PortalRefreshSeconds:  int(portalRefresh / time.Second),
		NewOrderWindowSeconds: int(newOrderWindow / time.Second),
	}
}

// OrderPoll returns the order poll interval.
func (s SyncConfig) OrderPoll() time.Duration { return time.Duration(s.OrderPollSeconds) * time.Second }

// MenuPoll returns the menu poll interval.
func (s SyncConfig) MenuPoll() time.Duration { return time.Duration(s.MenuPollSeconds) * time.Second }

// PortalRefresh returns the soft-refresh interval.
func (s SyncConfig) PortalRefresh() time.Duration {
	return time.Duration(s.PortalRefreshSeconds) * time.Second
}

// NewOrderWindow returns how long an order is flagged as new.
func (s SyncConfig) NewOrderWindow() time.Duration {
	return time.Duration(s.NewOrderWindowSeconds) * time.Second
}

// SyncConfigHandler serves GET /sync/config.
func SyncConfigHandler(cfg SyncConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.OK(c, cfg)
	}
}
