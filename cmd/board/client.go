package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/menu"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/realtime"
)

// errUnauthorized means the server rejected the token; the board must exit and be re-authenticated.
var errUnauthorized = errors.New("unauthorized: token rejected")

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type apiClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

func newAPIClient(base, token string) (*apiClient, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", base)
	}
	return &apiClient{base: u, token: token, http: &http.Client{Timeout: 10 * time.Second}}, nil
}

func get[T any](ctx context.Context, c *apiClient, path string, query url.Values) (T, error) {
	var zero T
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return zero, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return zero, errUnauthorized
	}
	var body envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return zero, fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success {
		return zero, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, body.Message)
	}
	return body.Data, nil
}

func (c *apiClient) syncConfig(ctx context.Context) (realtime.SyncConfig, error) {
	return get[realtime.SyncConfig](ctx, c, "/api/sync/config", nil)
}

func (c *apiClient) liveOrders(ctx context.Context, restaurantID uuid.UUID) ([]models.LiveOrder, error) {
	return get[[]models.LiveOrder](ctx, c, "/api/orders", url.Values{"restaurantId": {restaurantID.String()}})
}

func (c *apiClient) publicMenu(ctx context.Context, restaurantID uuid.UUID) (*menu.PublicMenu, error) {
	return get[*menu.PublicMenu](ctx, c, "/api/public/menu/"+restaurantID.String(), nil)
}

func (c *apiClient) wsURL(restaurantID uuid.UUID) string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/api/ws"
	u.RawQuery = url.Values{"restaurantId": {restaurantID.String()}, "token": {c.token}}.Encode()
	return u.String()
}

// listen keeps a push connection open and calls onEvent for every server event. It reconnects with
// backoff and returns errUnauthorized when the handshake is rejected, or nil when ctx ends.
func listen(ctx context.Context, dialer *websocket.Dialer, wsURL string, onEvent func(event string), logger *zap.Logger) error {
	backoff := time.Second
	for {
		conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return errUnauthorized
			}
			logger.Warn("push channel unavailable", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		for {
			var msg realtime.WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil {
					logger.Warn("push channel closed", zap.Error(err))
				}
				break
			}
			onEvent(msg.Event)
		}
		stop()
		_ = conn.Close()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}
