package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRefreshInterval is how often the scheduler forces a full refresh.
const DefaultRefreshInterval = 6 * time.Hour

// A failed round is retried sooner than the refresh interval, backing off
// as failures repeat.
const (
	backoffThreshold = 1
	backoffMaxCap    = 1 * time.Hour
)

// backoffSteps maps consecutive failure counts (starting at the threshold)
// to retry delays: 1→1m, 2→5m, 3→15m, 4+→1h.
var backoffSteps = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	backoffMaxCap,
}

// backoffDuration returns the delay for the given number of consecutive
// failures, or 0 below the threshold.
func backoffDuration(failures int) time.Duration {
	if failures < backoffThreshold {
		return 0
	}

	idx := failures - backoffThreshold
	if idx >= len(backoffSteps) {
		return backoffMaxCap
	}

	return backoffSteps[idx]
}

// syncAller is what the Scheduler drives. Implemented by *Orchestrator.
type syncAller interface {
	SyncAll(ctx context.Context, force bool) []State
}

// Scheduler refreshes every kind in the background: once at start without
// forcing (fresh caches are kept), then forced every interval. A failing
// round never stops the loop.
type Scheduler struct {
	orch     syncAller
	interval time.Duration
	logger   *slog.Logger
	kick     chan struct{}
}

// NewScheduler creates a Scheduler. A non-positive interval means
// DefaultRefreshInterval.
func NewScheduler(orch *Orchestrator, interval time.Duration, logger *slog.Logger) *Scheduler {
	return newScheduler(orch, interval, logger)
}

func newScheduler(orch syncAller, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		orch:     orch,
		interval: interval,
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an immediate forced round. Extra kicks while one is pending
// are dropped.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run loops until ctx is canceled. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	failures := 0
	force := false

	for {
		if s.round(ctx, force) {
			failures = 0
		} else {
			failures++
		}

		wait := s.interval
		if b := backoffDuration(failures); b > 0 && b < wait {
			wait = b
		}

		s.logger.Debug("next refresh scheduled",
			slog.Duration("in", wait),
			slog.Int("consecutive_failures", failures),
		)

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.kick:
			timer.Stop()
		case <-timer.C:
		}

		force = true
	}
}

// round runs one SyncAll with panic recovery and reports whether every kind
// succeeded.
func (s *Scheduler) round(ctx context.Context, force bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("refresh round panicked", slog.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()

	ok = true

	for _, st := range s.orch.SyncAll(ctx, force) {
		if st.Phase == PhaseError {
			ok = false
		}
	}

	return ok
}
