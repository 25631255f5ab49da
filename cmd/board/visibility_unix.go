//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
)

// toggleOnSignal flips hidden on every SIGUSR1.
func toggleOnSignal(ctx context.Context, hidden *atomic.Bool, logger *zap.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			now := !hidden.Load()
			hidden.Store(now)
			logger.Info("board visibility changed", zap.Bool("hidden", now))
		}
	}
}
