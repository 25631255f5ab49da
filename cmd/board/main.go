// Package main is a terminal kitchen board. It polls live orders for one restaurant, refreshes early
// on push events and marks recent orders as NEW!. With -display it shows the public menu instead,
// polling without a push channel.
//
// Every portal-refresh interval the board reloads everything. SIGUSR1 hides the board (a hidden
// board skips that reload) and SIGUSR1 again shows it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menuportal/backend/internal/menu"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/poll"
	"github.com/menuportal/backend/internal/realtime"
)

const clearScreen = "\033[H\033[2J"

func main() {
	apiURL := flag.String("api", envOr("MENUPORTAL_API", "http://localhost:8080"), "portal base URL")
	token := flag.String("token", os.Getenv("MENUPORTAL_TOKEN"), "session or API token")
	restaurant := flag.String("restaurant", "", "restaurant id")
	display := flag.Bool("display", false, "show the public menu instead of the order board")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	rid, err := uuid.Parse(*restaurant)
	if err != nil {
		fmt.Fprintln(os.Stderr, "-restaurant must be a restaurant id")
		os.Exit(2)
	}
	client, err := newAPIClient(*apiURL, *token)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sync, err := client.syncConfig(ctx)
	if err != nil {
		logger.Warn("sync config unavailable, using defaults", zap.Error(err))
		sync = realtime.NewSyncConfig(5*time.Second, 30*time.Second, 60*time.Second, 60*time.Second)
	}

	if *display {
		err = runDisplay(ctx, client, rid, sync, os.Stdout, logger)
	} else {
		if *token == "" {
			fmt.Fprintln(os.Stderr, "-token is required for the order board")
			os.Exit(2)
		}
		var hidden atomic.Bool
		go toggleOnSignal(ctx, &hidden, logger)
		err = runBoard(ctx, client, rid, sync, func() bool { return !hidden.Load() }, os.Stdout, logger)
	}
	if errors.Is(err, errUnauthorized) {
		fmt.Fprintln(os.Stderr, "token rejected; log in again")
		os.Exit(3)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBoard(ctx context.Context, client *apiClient, rid uuid.UUID, sync realtime.SyncConfig, visible func() bool, out io.Writer, logger *zap.Logger) error {
	var src *poll.Source[[]models.LiveOrder]
	draw := func() {
		orders, _, _ := src.Latest()
		fmt.Fprint(out, clearScreen)
		renderBoard(out, orders, time.Now(), sync.NewOrderWindow(), src.Err())
	}
	src = poll.New(poll.Config[[]models.LiveOrder]{
		Name:     "orders",
		Interval: sync.OrderPoll(),
		Fetch: func(ctx context.Context) ([]models.LiveOrder, error) {
			return client.liveOrders(ctx, rid)
		},
		OnUpdate: func([]models.LiveOrder) { draw() },
		OnError:  func(error) { draw() },
		Fatal:    func(err error) bool { return errors.Is(err, errUnauthorized) },
		Logger:   logger,
	})

	// Full reload: fresh intervals, then orders.
	portal := poll.New(poll.Config[realtime.SyncConfig]{
		Name:     "portal-refresh",
		Interval: sync.PortalRefresh(),
		Fetch:    client.syncConfig,
		Visible:  visible,
		OnUpdate: func(cfg realtime.SyncConfig) {
			if cfg != sync {
				logger.Info("server changed sync intervals; restart the board to apply them")
			}
			src.Refresh()
		},
		Fatal:  func(err error) bool { return errors.Is(err, errUnauthorized) },
		Logger: logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return src.Run(ctx) })
	g.Go(func() error { return portal.Run(ctx) })
	g.Go(func() error {
		return listen(ctx, websocket.DefaultDialer, client.wsURL(rid), func(event string) {
			switch event {
			case "order_created", "order_updated":
				src.Refresh()
			}
		}, logger)
	})
	err := g.Wait()
	if ctx.Err() != nil && !errors.Is(err, errUnauthorized) {
		return nil
	}
	return err
}

func runDisplay(ctx context.Context, client *apiClient, rid uuid.UUID, sync realtime.SyncConfig, out io.Writer, logger *zap.Logger) error {
	var src *poll.Source[*menu.PublicMenu]
	draw := func() {
		m, _, _ := src.Latest()
		fmt.Fprint(out, clearScreen)
		renderMenu(out, m, src.Err())
	}
	src = poll.New(poll.Config[*menu.PublicMenu]{
		Name:     "public-menu",
		Interval: sync.MenuPoll(),
		Fetch: func(ctx context.Context) (*menu.PublicMenu, error) {
			return client.publicMenu(ctx, rid)
		},
		OnUpdate: func(*menu.PublicMenu) { draw() },
		OnError:  func(error) { draw() },
		Logger:   logger,
	})
	return src.Run(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
