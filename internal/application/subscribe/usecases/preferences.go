package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"torweather/internal/application/subscribe/dto"
	"torweather/internal/domain/router"
	"torweather/internal/domain/subscriber"
	"torweather/internal/domain/subscription"
	"torweather/internal/shared/errors"
	"torweather/internal/shared/logger"
)

// GetPreferencesUseCase loads a subscriber's settings for the
// preferences page.
type GetPreferencesUseCase struct {
	routerRepo       router.Repository
	subscriberRepo   subscriber.Repository
	subscriptionRepo subscription.Repository
	logger           logger.Interface
}

// NewGetPreferencesUseCase creates a new get preferences use case.
func NewGetPreferencesUseCase(
	routerRepo router.Repository,
	subscriberRepo subscriber.Repository,
	subscriptionRepo subscription.Repository,
	logger logger.Interface,
) *GetPreferencesUseCase {
	return &GetPreferencesUseCase{
		routerRepo:       routerRepo,
		subscriberRepo:   subscriberRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// Execute returns the subscriber's current notification settings.
func (uc *GetPreferencesUseCase) Execute(ctx context.Context, prefAuth string) (*dto.SubscriberResponse, error) {
	sub, err := uc.subscriberRepo.GetByPrefAuth(ctx, prefAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("invalid preferences link")
	}

	relay, err := uc.routerRepo.GetByID(ctx, sub.RouterID())
	if err != nil {
		return nil, fmt.Errorf("failed to look up router: %w", err)
	}
	if relay == nil {
		return nil, errors.NewInternalError("subscriber references an unknown relay")
	}

	subs, err := uc.subscriptionRepo.ListBySubscriber(ctx, sub.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return buildSubscriberResponse(sub, relay, subs), nil
}

// UpdatePreferencesUseCase applies a preferences form submission:
// settings change in place, deselected rules are removed, newly selected
// ones are created.
type UpdatePreferencesUseCase struct {
	routerRepo       router.Repository
	subscriberRepo   subscriber.Repository
	subscriptionRepo subscription.Repository
	clock            clockwork.Clock
	logger           logger.Interface
}

// NewUpdatePreferencesUseCase creates a new update preferences use case.
func NewUpdatePreferencesUseCase(
	routerRepo router.Repository,
	subscriberRepo subscriber.Repository,
	subscriptionRepo subscription.Repository,
	clock clockwork.Clock,
	logger logger.Interface,
) *UpdatePreferencesUseCase {
	return &UpdatePreferencesUseCase{
		routerRepo:       routerRepo,
		subscriberRepo:   subscriberRepo,
		subscriptionRepo: subscriptionRepo,
		clock:            clock,
		logger:           logger,
	}
}

// Execute applies the preferences form for the subscriber behind prefAuth.
func (uc *UpdatePreferencesUseCase) Execute(ctx context.Context, prefAuth string, req dto.UpdatePreferencesRequest) (*dto.SubscriberResponse, error) {
	sub, err := uc.subscriberRepo.GetByPrefAuth(ctx, prefAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("invalid preferences link")
	}

	relay, err := uc.routerRepo.GetByID(ctx, sub.RouterID())
	if err != nil {
		return nil, fmt.Errorf("failed to look up router: %w", err)
	}
	if relay == nil {
		return nil, errors.NewInternalError("subscriber references an unknown relay")
	}

	wanted := map[subscription.Type]bool{
		subscription.TypeNodeDown:  req.GetNodeDown,
		subscription.TypeVersion:   req.GetVersion,
		subscription.TypeBandwidth: req.GetBandLow,
		subscription.TypeTShirt:    req.GetTShirt,
	}
	if !req.GetNodeDown && !req.GetVersion && !req.GetBandLow && !req.GetTShirt {
		return nil, errors.NewValidationError("select at least one notification type")
	}

	existing, err := uc.subscriptionRepo.ListBySubscriber(ctx, sub.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	byType := make(map[subscription.Type]*subscription.Subscription, len(existing))
	for _, s := range existing {
		byType[s.Type()] = s
	}

	now := uc.clock.Now()

	for subType, want := range wanted {
		current, have := byType[subType]

		switch {
		case want && have:
			if err := uc.applySettings(current, subType, req, now); err != nil {
				return nil, err
			}
			if err := uc.subscriptionRepo.Update(ctx, current); err != nil {
				return nil, fmt.Errorf("failed to update subscription: %w", err)
			}
		case want && !have:
			created, err := uc.newSubscription(sub.ID(), subType, req, now)
			if err != nil {
				return nil, err
			}
			if err := uc.subscriptionRepo.Create(ctx, created); err != nil {
				return nil, fmt.Errorf("failed to create subscription: %w", err)
			}
		case !want && have:
			if err := uc.subscriptionRepo.Delete(ctx, current.ID()); err != nil {
				return nil, fmt.Errorf("failed to delete subscription: %w", err)
			}
		}
	}

	subs, err := uc.subscriptionRepo.ListBySubscriber(ctx, sub.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	uc.logger.Infow("preferences updated", "subscriber_id", sub.ID(), "rules", len(subs))

	return buildSubscriberResponse(sub, relay, subs), nil
}

func (uc *UpdatePreferencesUseCase) applySettings(s *subscription.Subscription, subType subscription.Type, req dto.UpdatePreferencesRequest, now time.Time) error {
	switch subType {
	case subscription.TypeNodeDown:
		graceHours := req.NodeDownGraceHr
		if graceHours == 0 {
			graceHours = subscription.GracePeriodDefault
		}
		if err := s.SetGraceHours(graceHours, now); err != nil {
			return errors.NewValidationError("invalid grace period", err.Error())
		}
	case subscription.TypeVersion:
		notifyType := subscription.NotifyType(req.VersionType)
		if req.VersionType == "" {
			notifyType = subscription.NotifyUnrecommended
		}
		if err := s.SetNotifyType(notifyType, now); err != nil {
			return errors.NewValidationError("invalid version notification type", err.Error())
		}
	case subscription.TypeBandwidth:
		threshold := req.BandLowThreshold
		if threshold == 0 {
			threshold = subscription.ThresholdDefault
		}
		if err := s.SetThresholdKBs(threshold, now); err != nil {
			return errors.NewValidationError("invalid bandwidth threshold", err.Error())
		}
	}
	return nil
}

func (uc *UpdatePreferencesUseCase) newSubscription(subscriberID uint, subType subscription.Type, req dto.UpdatePreferencesRequest, now time.Time) (*subscription.Subscription, error) {
	switch subType {
	case subscription.TypeNodeDown:
		s, err := subscription.NewNodeDownSubscription(subscriberID, req.NodeDownGraceHr, now)
		if err != nil {
			return nil, errors.NewValidationError("invalid grace period", err.Error())
		}
		return s, nil
	case subscription.TypeVersion:
		notifyType := subscription.NotifyType(req.VersionType)
		if req.VersionType == "" {
			notifyType = subscription.NotifyUnrecommended
		}
		s, err := subscription.NewVersionSubscription(subscriberID, notifyType, now)
		if err != nil {
			return nil, errors.NewValidationError("invalid version notification type", err.Error())
		}
		return s, nil
	case subscription.TypeBandwidth:
		s, err := subscription.NewBandwidthSubscription(subscriberID, req.BandLowThreshold, now)
		if err != nil {
			return nil, errors.NewValidationError("invalid bandwidth threshold", err.Error())
		}
		return s, nil
	default:
		s, err := subscription.NewTShirtSubscription(subscriberID, now)
		if err != nil {
			return nil, errors.NewValidationError("invalid t-shirt subscription", err.Error())
		}
		return s, nil
	}
}
