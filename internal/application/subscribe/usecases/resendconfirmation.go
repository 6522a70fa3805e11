package usecases

import (
	"context"
	"fmt"

	"torweather/internal/application/subscribe/dto"
	"torweather/internal/domain/router"
	"torweather/internal/domain/subscriber"
	"torweather/internal/shared/errors"
	"torweather/internal/shared/logger"
)

// ResendConfirmationUseCase resends the confirmation mail from the
// pending page.
type ResendConfirmationUseCase struct {
	routerRepo     router.Repository
	subscriberRepo subscriber.Repository
	mailer         ConfirmationMailer
	logger         logger.Interface
}

// NewResendConfirmationUseCase creates a new resend confirmation use case.
func NewResendConfirmationUseCase(
	routerRepo router.Repository,
	subscriberRepo subscriber.Repository,
	mailer ConfirmationMailer,
	logger logger.Interface,
) *ResendConfirmationUseCase {
	return &ResendConfirmationUseCase{
		routerRepo:     routerRepo,
		subscriberRepo: subscriberRepo,
		mailer:         mailer,
		logger:         logger,
	}
}

// Execute resends the confirmation mail for a pending subscriber.
func (uc *ResendConfirmationUseCase) Execute(ctx context.Context, confirmAuth string) (*dto.SubscriberResponse, error) {
	sub, err := uc.subscriberRepo.GetByConfirmAuth(ctx, confirmAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("invalid confirmation link")
	}
	if sub.Confirmed() {
		return nil, errors.NewConflictError("this subscription is already confirmed")
	}

	relay, err := uc.routerRepo.GetByID(ctx, sub.RouterID())
	if err != nil {
		return nil, fmt.Errorf("failed to look up router: %w", err)
	}
	if relay == nil {
		return nil, errors.NewInternalError("subscriber references an unknown relay")
	}

	if err := uc.mailer.SendConfirmation(sub.Email(), relay.DisplayName(), sub.ConfirmAuth()); err != nil {
		uc.logger.Errorw("failed to resend confirmation mail", "subscriber_id", sub.ID(), "error", err)
		return nil, errors.NewInternalError("failed to send confirmation mail")
	}

	uc.logger.Infow("confirmation mail resent", "subscriber_id", sub.ID())

	return buildSubscriberResponse(sub, relay, nil), nil
}
