// Package poll runs a fetch function on an interval and keeps the last good result.
//
// A Source stops when its context is cancelled, skips ticks while its owner reports it is hidden,
// and can be nudged to fetch early when a push event arrives.
package poll

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fetch loads the current server state.
type Fetch[T any] func(ctx context.Context) (T, error)

// Config configures a Source. Only Interval and Fetch are required.
type Config[T any] struct {
	Name     string
	Interval time.Duration
	Fetch    Fetch[T]
	// Visible reports whether the owner is on screen; hidden ticks are skipped. nil means always visible.
	Visible func() bool
	// OnUpdate receives every successful result.
	OnUpdate func(T)
	// OnError receives every failed fetch. The last good result is kept.
	OnError func(error)
	// Fatal ends Run with the error, e.g. for rejected credentials.
	Fatal  func(error) bool
	Logger *zap.Logger
}

// Source is a cancellable polling loop.
type Source[T any] struct {
	cfg     Config[T]
	trigger chan struct{}

	mu      sync.RWMutex
	last    T
	has     bool
	updated time.Time
	lastErr error
}

// New creates a source. It does nothing until Run.
func New[T any](cfg Config[T]) *Source[T] {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Source[T]{cfg: cfg, trigger: make(chan struct{}, 1)}
}

// Run fetches immediately and then on every tick until ctx is done. It returns nil on cancellation
// and the error when Fatal matches.
func (s *Source[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if err := s.poll(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.cfg.Visible != nil && !s.cfg.Visible() {
				continue
			}
		case <-s.trigger:
		}
		if err := s.poll(ctx); err != nil {
			return err
		}
	}
}

// Refresh asks a running source to fetch now. Calls coalesce while a fetch is pending.
func (s *Source[T]) Refresh() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Source[T]) poll(ctx context.Context) error {
	v, err := s.cfg.Fetch(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.cfg.Logger.Debug("poll failed", zap.String("source", s.cfg.Name), zap.Error(err))
		if s.cfg.OnError != nil {
			s.cfg.OnError(err)
		}
		if s.cfg.Fatal != nil && s.cfg.Fatal(err) {
			return err
		}
		return nil
	}
	s.mu.Lock()
	s.last, s.has, s.updated, s.lastErr = v, true, time.Now(), nil
	s.mu.Unlock()
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(v)
	}
	return nil
}

// Latest returns the last good result and when it was fetched.
func (s *Source[T]) Latest() (T, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.updated, s.has
}

// Err returns the error of the most recent fetch, nil after a success.
func (s *Source[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
