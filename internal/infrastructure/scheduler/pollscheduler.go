// Package scheduler runs the periodic consensus poll that drives every
// notification Tor Weather sends.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"torweather/internal/shared/logger"
)

// Poller is one full poll cycle: refresh relay state from the consensus
// and run every subscription check.
type Poller interface {
	RunCycle(ctx context.Context) error
}

// PollScheduler triggers a poll cycle at a fixed interval. One cycle runs
// at a time; the ticker simply fires again while a slow cycle is still
// going and the next run starts after it finishes.
type PollScheduler struct {
	poller   Poller
	clock    clockwork.Clock
	logger   logger.Interface
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	interval time.Duration
}

// NewPollScheduler creates a new PollScheduler.
func NewPollScheduler(poller Poller, interval time.Duration, logger logger.Interface) *PollScheduler {
	return NewPollSchedulerWithClock(poller, interval, clockwork.NewRealClock(), logger)
}

// NewPollSchedulerWithClock creates a PollScheduler with an injected clock.
func NewPollSchedulerWithClock(poller Poller, interval time.Duration, clock clockwork.Clock, logger logger.Interface) *PollScheduler {
	return &PollScheduler{
		poller:   poller,
		clock:    clock,
		logger:   logger,
		stopChan: make(chan struct{}),
		interval: interval,
	}
}

// Start starts the scheduler.
func (s *PollScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting poll scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLoop(ctx)
	}()
}

// Stop stops the scheduler gracefully and waits for a running cycle.
func (s *PollScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping poll scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("poll scheduler stopped")
	})
}

func (s *PollScheduler) runLoop(ctx context.Context) {
	// Run immediately on startup so a restart doesn't delay notifications
	// by a full interval.
	s.runCycle(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("poll scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.Chan():
			s.runCycle(ctx)
		}
	}
}

func (s *PollScheduler) runCycle(ctx context.Context) {
	startTime := s.clock.Now()

	if err := s.poller.RunCycle(ctx); err != nil {
		s.logger.Errorw("poll cycle failed",
			"error", err,
			"duration", s.clock.Since(startTime),
		)
		return
	}

	s.logger.Infow("poll cycle completed", "duration", s.clock.Since(startTime))
}
