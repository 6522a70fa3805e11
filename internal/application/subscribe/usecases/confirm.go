package usecases

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"torweather/internal/application/subscribe/dto"
	"torweather/internal/domain/router"
	"torweather/internal/domain/subscriber"
	"torweather/internal/domain/subscription"
	"torweather/internal/shared/errors"
	"torweather/internal/shared/logger"
)

// ConfirmedMailer acknowledges a successful confirmation.
type ConfirmedMailer interface {
	SendConfirmed(to, routerName, unsubsAuth, prefAuth string) error
}

// ConfirmUseCase confirms a pending subscription via its confirm key.
type ConfirmUseCase struct {
	routerRepo       router.Repository
	subscriberRepo   subscriber.Repository
	subscriptionRepo subscription.Repository
	mailer           ConfirmedMailer
	clock            clockwork.Clock
	logger           logger.Interface
}

// NewConfirmUseCase creates a new confirm use case.
func NewConfirmUseCase(
	routerRepo router.Repository,
	subscriberRepo subscriber.Repository,
	subscriptionRepo subscription.Repository,
	mailer ConfirmedMailer,
	clock clockwork.Clock,
	logger logger.Interface,
) *ConfirmUseCase {
	return &ConfirmUseCase{
		routerRepo:       routerRepo,
		subscriberRepo:   subscriberRepo,
		subscriptionRepo: subscriptionRepo,
		mailer:           mailer,
		clock:            clock,
		logger:           logger,
	}
}

// Execute confirms the subscriber behind confirmAuth. Revisiting a stale
// confirmation link succeeds without sending another acknowledgement.
func (uc *ConfirmUseCase) Execute(ctx context.Context, confirmAuth string) (*dto.SubscriberResponse, error) {
	sub, err := uc.subscriberRepo.GetByConfirmAuth(ctx, confirmAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("invalid confirmation link")
	}

	relay, err := uc.routerRepo.GetByID(ctx, sub.RouterID())
	if err != nil {
		return nil, fmt.Errorf("failed to look up router: %w", err)
	}
	if relay == nil {
		return nil, errors.NewInternalError("subscriber references an unknown relay")
	}

	alreadyConfirmed := sub.Confirmed()
	if !alreadyConfirmed {
		sub.Confirm(uc.clock.Now())
		if err := uc.subscriberRepo.Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to confirm subscriber: %w", err)
		}

		if err := uc.mailer.SendConfirmed(sub.Email(), relay.DisplayName(), sub.UnsubsAuth(), sub.PrefAuth()); err != nil {
			uc.logger.Errorw("failed to send confirmed mail", "subscriber_id", sub.ID(), "error", err)
		}

		uc.logger.Infow("subscriber confirmed", "id", sub.ID())
	}

	subs, err := uc.subscriptionRepo.ListBySubscriber(ctx, sub.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return buildSubscriberResponse(sub, relay, subs), nil
}
