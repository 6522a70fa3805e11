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

// UnsubscribeUseCase removes a subscriber via their unsubscribe key.
type UnsubscribeUseCase struct {
	routerRepo     router.Repository
	subscriberRepo subscriber.Repository
	logger         logger.Interface
}

// NewUnsubscribeUseCase creates a new unsubscribe use case.
func NewUnsubscribeUseCase(
	routerRepo router.Repository,
	subscriberRepo subscriber.Repository,
	logger logger.Interface,
) *UnsubscribeUseCase {
	return &UnsubscribeUseCase{
		routerRepo:     routerRepo,
		subscriberRepo: subscriberRepo,
		logger:         logger,
	}
}

// Execute deletes the subscriber behind unsubsAuth along with all their
// notification rules.
func (uc *UnsubscribeUseCase) Execute(ctx context.Context, unsubsAuth string) (*dto.SubscriberResponse, error) {
	sub, err := uc.subscriberRepo.GetByUnsubsAuth(ctx, unsubsAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("invalid unsubscribe link")
	}

	relay, err := uc.routerRepo.GetByID(ctx, sub.RouterID())
	if err != nil {
		return nil, fmt.Errorf("failed to look up router: %w", err)
	}

	if err := uc.subscriberRepo.Delete(ctx, sub.ID()); err != nil {
		return nil, fmt.Errorf("failed to delete subscriber: %w", err)
	}

	uc.logger.Infow("subscriber unsubscribed", "id", sub.ID())

	resp := &dto.SubscriberResponse{Email: sub.Email()}
	if relay != nil {
		resp.RouterName = relay.DisplayName()
		resp.RouterFingerprint = relay.SpacedFingerprint()
	}
	return resp, nil
}
