package usecases

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"torweather/internal/infrastructure/observability"
	"torweather/internal/shared/logger"
)

// checkUseCase is one notification check run during a poll cycle.
type checkUseCase interface {
	Execute(ctx context.Context) error
}

type namedCheck struct {
	name  string
	check checkUseCase
}

// RunPollCycleUseCase strings the per-cycle steps together: refresh the
// relay table from the consensus, then run every notification check. It
// satisfies the scheduler's Poller interface.
type RunPollCycleUseCase struct {
	updateRouters *UpdateRoutersUseCase
	checks        []namedCheck
	metrics       *observability.Metrics
	clock         clockwork.Clock
	logger        logger.Interface
}

// NewRunPollCycleUseCase creates a new run poll cycle use case.
func NewRunPollCycleUseCase(
	updateRouters *UpdateRoutersUseCase,
	nodeDown *CheckNodeDownUseCase,
	version *CheckVersionUseCase,
	bandwidth *CheckBandwidthUseCase,
	tshirt *CheckTShirtUseCase,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger logger.Interface,
) *RunPollCycleUseCase {
	return &RunPollCycleUseCase{
		updateRouters: updateRouters,
		checks: []namedCheck{
			{name: "node_down", check: nodeDown},
			{name: "version", check: version},
			{name: "bandwidth", check: bandwidth},
			{name: "t_shirt", check: tshirt},
		},
		metrics: metrics,
		clock:   clock,
		logger:  logger,
	}
}

// RunCycle executes one full poll cycle. A failed consensus refresh
// aborts the cycle; a failed check is logged and the remaining checks
// still run.
func (uc *RunPollCycleUseCase) RunCycle(ctx context.Context) error {
	start := uc.clock.Now()

	if err := uc.updateRouters.Execute(ctx); err != nil {
		uc.metrics.PollCycleErrors.Inc()
		return fmt.Errorf("failed to refresh relay table: %w", err)
	}

	var firstErr error
	for _, c := range uc.checks {
		if err := c.check.Execute(ctx); err != nil {
			uc.logger.Errorw("notification check failed", "check", c.name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s check: %w", c.name, err)
			}
		}
	}

	uc.metrics.PollCycleDuration.Observe(uc.clock.Since(start).Seconds())
	if firstErr != nil {
		uc.metrics.PollCycleErrors.Inc()
		return firstErr
	}

	uc.metrics.PollCycles.Inc()
	return nil
}
