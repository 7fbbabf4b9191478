package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Sweeper periodically deletes sessions that can no longer transition.
//
// Sweeping only reclaims space: every operation re-checks expiry against the
// clock, so a late sweep never changes an observable result.
type Sweeper struct {
	store    Store
	policy   Policy
	clock    clock.Clock
	interval time.Duration
	log      *slog.Logger
	onSwept  func(n int)
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepClock overrides the wall clock (tests use clock.NewMock).
func WithSweepClock(c clock.Clock) SweeperOption {
	return func(s *Sweeper) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSweepLogger sets the logger used for sweep events.
func WithSweepLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSweepObserver registers a callback invoked with each non-zero sweep count.
func WithSweepObserver(fn func(n int)) SweeperOption {
	return func(s *Sweeper) { s.onSwept = fn }
}

// NewSweeper builds a Sweeper running every interval.
func NewSweeper(store Store, p Policy, interval time.Duration, opts ...SweeperOption) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrConfig)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: sweep interval must be > 0", ErrConfig)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := &Sweeper{
		store:    store,
		policy:   p,
		clock:    clock.New(),
		interval: interval,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Run sweeps on every tick until ctx is canceled. Sweep failures are logged, not returned.
func (s *Sweeper) Run(ctx context.Context) error {
	t := s.clock.Ticker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep and returns the number of deleted entries.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := s.store.Sweep(ctx, s.clock.Now().Unix(), s.policy)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("session.sweep.failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.log.Debug("session.sweep.done", "deleted", n)
		if s.onSwept != nil {
			s.onSwept(n)
		}
	}
	return n
}
