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

// NodeDownMailer delivers the node-down notification.
type NodeDownMailer interface {
	SendNodeDown(to, routerName string, graceHours int, unsubsAuth, prefAuth string) error
}

// CheckNodeDownUseCase walks every confirmed node-down subscription,
// advances its state machine with the relay's current reachability, and
// mails subscribers whose grace period has run out.
type CheckNodeDownUseCase struct {
	routerRepo       router.Repository
	subscriptionRepo subscription.Repository
	mailer           NodeDownMailer
	metrics          *observability.Metrics
	clock            clockwork.Clock
	logger           logger.Interface
}

// NewCheckNodeDownUseCase creates a new check node down use case.
func NewCheckNodeDownUseCase(
	routerRepo router.Repository,
	subscriptionRepo subscription.Repository,
	mailer NodeDownMailer,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger logger.Interface,
) *CheckNodeDownUseCase {
	return &CheckNodeDownUseCase{
		routerRepo:       routerRepo,
		subscriptionRepo: subscriptionRepo,
		mailer:           mailer,
		metrics:          metrics,
		clock:            clock,
		logger:           logger,
	}
}

// Execute runs the node-down check across all confirmed subscriptions.
func (uc *CheckNodeDownUseCase) Execute(ctx context.Context) error {
	targets, err := uc.subscriptionRepo.ListConfirmedByType(ctx, subscription.TypeNodeDown)
	if err != nil {
		return fmt.Errorf("failed to list node-down subscriptions: %w", err)
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

		notify := target.Subscription.ObserveNodeStatus(rt.Up(), now)
		if err := uc.subscriptionRepo.Update(ctx, target.Subscription); err != nil {
			uc.logger.Errorw("failed to persist subscription state",
				"subscription_id", target.Subscription.ID(), "error", err)
			continue
		}
		if !notify {
			continue
		}

		err := uc.mailer.SendNodeDown(target.Email, rt.DisplayName(),
			target.Subscription.GraceHours(), target.UnsubsAuth, target.PrefAuth)
		uc.metrics.ObserveEmail("node_down", err)
		if err != nil {
			uc.logger.Errorw("failed to send node-down mail",
				"subscription_id", target.Subscription.ID(), "error", err)
			continue
		}
		uc.logger.Infow("node-down mail sent", "fingerprint", rt.Fingerprint(), "to", target.Email)
	}

	return nil
}
