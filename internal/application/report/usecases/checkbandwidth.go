package usecases

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"torweather/internal/domain/router"
	"torweather/internal/domain/subscription"
	"torweather/internal/infrastructure/observability"
	"torweather/internal/shared/logger"
)

// BandwidthMailer delivers the low-bandwidth notification.
type BandwidthMailer interface {
	SendLowBandwidth(to, routerName string, observedKBs, thresholdKBs int64, unsubsAuth, prefAuth string) error
}

// CheckBandwidthUseCase mails subscribers whose relay's observed
// bandwidth dropped below their threshold. Recovering above the
// threshold rearms the rule.
type CheckBandwidthUseCase struct {
	routerRepo       router.Repository
	subscriptionRepo subscription.Repository
	mailer           BandwidthMailer
	metrics          *observability.Metrics
	clock            clockwork.Clock
	logger           logger.Interface
}

// NewCheckBandwidthUseCase creates a new check bandwidth use case.
func NewCheckBandwidthUseCase(
	routerRepo router.Repository,
	subscriptionRepo subscription.Repository,
	mailer BandwidthMailer,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger logger.Interface,
) *CheckBandwidthUseCase {
	return &CheckBandwidthUseCase{
		routerRepo:       routerRepo,
		subscriptionRepo: subscriptionRepo,
		mailer:           mailer,
		metrics:          metrics,
		clock:            clock,
		logger:           logger,
	}
}

// Execute runs the bandwidth check across all confirmed subscriptions.
func (uc *CheckBandwidthUseCase) Execute(ctx context.Context) error {
	targets, err := uc.subscriptionRepo.ListConfirmedByType(ctx, subscription.TypeBandwidth)
	if err != nil {
		return fmt.Errorf("failed to list bandwidth subscriptions: %w", err)
	}
	relays, err := loadRouterIndex(ctx, uc.routerRepo)
	if err != nil {
		return err
	}

	now := uc.clock.Now()

	for _, target := range targets {
		rt := relays[target.RouterID]
		if rt == nil {
			uc.logger.Warnw("subscription references unknown relay",
				"subscription_id", target.Subscription.ID(), "router_id", target.RouterID)
			continue
		}
		// An unreachable relay reports no bandwidth worth judging.
		if !rt.Up() {
			continue
		}

		notify := target.Subscription.ObserveBandwidth(rt.ObservedKBs(), now)
		if err := uc.subscriptionRepo.Update(ctx, target.Subscription); err != nil {
			uc.logger.Errorw("failed to persist subscription state",
				"subscription_id", target.Subscription.ID(), "error", err)
			continue
		}
		if !notify {
			continue
		}

		err := uc.mailer.SendLowBandwidth(target.Email, rt.DisplayName(),
			rt.ObservedKBs(), target.Subscription.ThresholdKBs(), target.UnsubsAuth, target.PrefAuth)
		uc.metrics.ObserveEmail("bandwidth", err)
		if err != nil {
			uc.logger.Errorw("failed to send low-bandwidth mail",
				"subscription_id", target.Subscription.ID(), "error", err)
			continue
		}
		uc.logger.Infow("low-bandwidth mail sent", "fingerprint", rt.Fingerprint(), "to", target.Email,
			"observed_kbs", rt.ObservedKBs())
	}

	return nil
}
