package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torweather/internal/shared/logger"
)

type countingPoller struct {
	cycles atomic.Int64
	gate   chan struct{}
}

func (p *countingPoller) RunCycle(ctx context.Context) error {
	p.cycles.Add(1)
	if p.gate != nil {
		p.gate <- struct{}{}
	}
	return nil
}

func TestPollScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	poller := &countingPoller{gate: make(chan struct{}, 10)}
	s := NewPollSchedulerWithClock(poller, 30*time.Minute, clock, logger.NewLogger())

	s.Start(context.Background())
	defer s.Stop()

	// Startup cycle fires before the first tick.
	<-poller.gate
	assert.Equal(t, int64(1), poller.cycles.Load())

	err := clock.BlockUntilContext(context.Background(), 1)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	<-poller.gate
	assert.Equal(t, int64(2), poller.cycles.Load())

	clock.Advance(30 * time.Minute)
	<-poller.gate
	assert.Equal(t, int64(3), poller.cycles.Load())
}

func TestPollScheduler_StopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	poller := &countingPoller{}
	s := NewPollSchedulerWithClock(poller, time.Minute, clock, logger.NewLogger())

	s.Start(context.Background())
	s.Stop()
	s.Stop()

	assert.Equal(t, int64(1), poller.cycles.Load())
}

func TestPollScheduler_ContextCancelStopsLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	poller := &countingPoller{gate: make(chan struct{}, 10)}
	s := NewPollSchedulerWithClock(poller, time.Minute, clock, logger.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	<-poller.gate

	cancel()
	s.Stop()
	assert.Equal(t, int64(1), poller.cycles.Load())
}
