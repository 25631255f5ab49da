//go:build !unix

package main

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// toggleOnSignal is a no-op where SIGUSR1 does not exist; the board stays visible.
func toggleOnSignal(context.Context, *atomic.Bool, *zap.Logger) {}
