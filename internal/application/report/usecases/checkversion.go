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

// VersionSource reads the directory authorities' recommended-version list.
type VersionSource interface {
	RecommendedVersions() ([]string, error)
}

// VersionMailer delivers the out-of-date version notification.
type VersionMailer interface {
	SendVersion(to, routerName, version string, unsubsAuth, prefAuth string) error
}

// CheckVersionUseCase compares each watched relay's Tor version against
// the recommended list and mails subscribers whose relay falls outside
// their chosen policy. One mail per lapse; upgrading rearms the rule.
type CheckVersionUseCase struct {
	routerRepo       router.Repository
	subscriptionRepo subscription.Repository
	source           VersionSource
	mailer           VersionMailer
	metrics          *observability.Metrics
	clock            clockwork.Clock
	logger           logger.Interface
}

// NewCheckVersionUseCase creates a new check version use case.
func NewCheckVersionUseCase(
	routerRepo router.Repository,
	subscriptionRepo subscription.Repository,
	source VersionSource,
	mailer VersionMailer,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger logger.Interface,
) *CheckVersionUseCase {
	return &CheckVersionUseCase{
		routerRepo:       routerRepo,
		subscriptionRepo: subscriptionRepo,
		source:           source,
		mailer:           mailer,
		metrics:          metrics,
		clock:            clock,
		logger:           logger,
	}
}

// Execute runs the version check across all confirmed subscriptions.
func (uc *CheckVersionUseCase) Execute(ctx context.Context) error {
	targets, err := uc.subscriptionRepo.ListConfirmedByType(ctx, subscription.TypeVersion)
	if err != nil {
		return fmt.Errorf("failed to list version subscriptions: %w", err)
	}
	if len(targets) == 0 {
		return nil
	}

	recommended, err := uc.source.RecommendedVersions()
	if err != nil {
		return fmt.Errorf("failed to fetch recommended versions: %w", err)
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

		versionOK := subscription.VersionOK(target.Subscription.NotifyType(), rt.Version(), recommended)
		notify := target.Subscription.ObserveVersionStatus(versionOK, now)
		if err := uc.subscriptionRepo.Update(ctx, target.Subscription); err != nil {
			uc.logger.Errorw("failed to persist subscription state",
				"subscription_id", target.Subscription.ID(), "error", err)
			continue
		}
		if !notify {
			continue
		}

		err := uc.mailer.SendVersion(target.Email, rt.DisplayName(), rt.Version(),
			target.UnsubsAuth, target.PrefAuth)
		uc.metrics.ObserveEmail("version", err)
		if err != nil {
			uc.logger.Errorw("failed to send version mail",
				"subscription_id", target.Subscription.ID(), "error", err)
			continue
		}
		uc.logger.Infow("version mail sent", "fingerprint", rt.Fingerprint(), "to", target.Email,
			"version", rt.Version())
	}

	return nil
}
