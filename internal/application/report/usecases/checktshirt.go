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

// TShirtMailer delivers the T-shirt eligibility notification.
type TShirtMailer interface {
	SendTShirt(to, routerName string, avgKBs float64, exit bool, unsubsAuth, prefAuth string) error
}

// CheckTShirtUseCase accumulates uptime and average bandwidth for each
// T-shirt subscription and mails the operator once the relay qualifies.
// The mail goes out at most once per subscription.
type CheckTShirtUseCase struct {
	routerRepo       router.Repository
	subscriptionRepo subscription.Repository
	mailer           TShirtMailer
	metrics          *observability.Metrics
	clock            clockwork.Clock
	logger           logger.Interface
}

// NewCheckTShirtUseCase creates a new check t-shirt use case.
func NewCheckTShirtUseCase(
	routerRepo router.Repository,
	subscriptionRepo subscription.Repository,
	mailer TShirtMailer,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger logger.Interface,
) *CheckTShirtUseCase {
	return &CheckTShirtUseCase{
		routerRepo:       routerRepo,
		subscriptionRepo: subscriptionRepo,
		mailer:           mailer,
		metrics:          metrics,
		clock:            clock,
		logger:           logger,
	}
}

// Execute runs the T-shirt eligibility check across all confirmed
// subscriptions.
func (uc *CheckTShirtUseCase) Execute(ctx context.Context) error {
	targets, err := uc.subscriptionRepo.ListConfirmedByType(ctx, subscription.TypeTShirt)
	if err != nil {
		return fmt.Errorf("failed to list t-shirt subscriptions: %w", err)
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

		notify := target.Subscription.ObserveUptime(rt.Up(), rt.Exit(), rt.ObservedKBs(), now)
		if err := uc.subscriptionRepo.Update(ctx, target.Subscription); err != nil {
			uc.logger.Errorw("failed to persist subscription state",
				"subscription_id", target.Subscription.ID(), "error", err)
			continue
		}
		if !notify {
			continue
		}

		err := uc.mailer.SendTShirt(target.Email, rt.DisplayName(),
			target.Subscription.AvgKBs(), rt.Exit(), target.UnsubsAuth, target.PrefAuth)
		uc.metrics.ObserveEmail("t_shirt", err)
		if err != nil {
			uc.logger.Errorw("failed to send t-shirt mail",
				"subscription_id", target.Subscription.ID(), "error", err)
			continue
		}
		uc.logger.Infow("t-shirt mail sent", "fingerprint", rt.Fingerprint(), "to", target.Email,
			"avg_kbs", target.Subscription.AvgKBs())
	}

	return nil
}
