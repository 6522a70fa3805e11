// Package usecases implements the subscriber-facing flows: subscribing,
// confirming, unsubscribing, and editing notification preferences.
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

// ConfirmationMailer sends the double-opt-in mail.
type ConfirmationMailer interface {
	SendConfirmation(to, routerName, confirmAuth string) error
}

// SubscribeUseCase handles a new subscribe form submission.
type SubscribeUseCase struct {
	routerRepo       router.Repository
	subscriberRepo   subscriber.Repository
	subscriptionRepo subscription.Repository
	mailer           ConfirmationMailer
	clock            clockwork.Clock
	logger           logger.Interface
}

// NewSubscribeUseCase creates a new subscribe use case.
func NewSubscribeUseCase(
	routerRepo router.Repository,
	subscriberRepo subscriber.Repository,
	subscriptionRepo subscription.Repository,
	mailer ConfirmationMailer,
	clock clockwork.Clock,
	logger logger.Interface,
) *SubscribeUseCase {
	return &SubscribeUseCase{
		routerRepo:       routerRepo,
		subscriberRepo:   subscriberRepo,
		subscriptionRepo: subscriptionRepo,
		mailer:           mailer,
		clock:            clock,
		logger:           logger,
	}
}

// buildSubscriptions creates the subscription entities a subscribe or
// preferences form asks for. At least one type must be requested.
func buildSubscriptions(subscriberID uint, req dto.SubscribeRequest, clock clockwork.Clock) ([]*subscription.Subscription, error) {
	now := clock.Now()
	var subs []*subscription.Subscription

	if req.GetNodeDown {
		sub, err := subscription.NewNodeDownSubscription(subscriberID, req.NodeDownGraceHr, now)
		if err != nil {
			return nil, errors.NewValidationError("invalid grace period", err.Error())
		}
		subs = append(subs, sub)
	}
	if req.GetVersion {
		notifyType := subscription.NotifyType(req.VersionType)
		if req.VersionType == "" {
			notifyType = subscription.NotifyUnrecommended
		}
		sub, err := subscription.NewVersionSubscription(subscriberID, notifyType, now)
		if err != nil {
			return nil, errors.NewValidationError("invalid version notification type", err.Error())
		}
		subs = append(subs, sub)
	}
	if req.GetBandLow {
		sub, err := subscription.NewBandwidthSubscription(subscriberID, req.BandLowThreshold, now)
		if err != nil {
			return nil, errors.NewValidationError("invalid bandwidth threshold", err.Error())
		}
		subs = append(subs, sub)
	}
	if req.GetTShirt {
		sub, err := subscription.NewTShirtSubscription(subscriberID, now)
		if err != nil {
			return nil, errors.NewValidationError("invalid t-shirt subscription", err.Error())
		}
		subs = append(subs, sub)
	}

	if len(subs) == 0 {
		return nil, errors.NewValidationError("select at least one notification type")
	}
	return subs, nil
}

// Execute validates the request, creates the subscriber with their
// requested notification rules, and sends the confirmation mail.
func (uc *SubscribeUseCase) Execute(ctx context.Context, req dto.SubscribeRequest) (*dto.SubscriberResponse, error) {
	uc.logger.Infow("executing subscribe use case", "fingerprint", req.Fingerprint)

	fingerprint := router.NormalizeFingerprint(req.Fingerprint)
	if !router.ValidFingerprint(fingerprint) {
		return nil, errors.NewValidationError("invalid fingerprint",
			"a fingerprint is 40 hexadecimal characters")
	}
	if !subscriber.ValidEmail(req.Email) {
		return nil, errors.NewValidationError("invalid email address")
	}

	// Only relays we have seen in a consensus can be watched.
	relay, err := uc.routerRepo.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to look up router: %w", err)
	}
	if relay == nil {
		return nil, errors.NewNotFoundError("we aren't tracking a relay with that fingerprint",
			"the relay may not have appeared in a recent consensus yet")
	}

	existing, err := uc.subscriberRepo.GetByEmailAndRouter(ctx, req.Email, relay.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to check existing subscriber: %w", err)
	}
	if existing != nil {
		if existing.Confirmed() {
			return nil, errors.NewConflictError("this email address already subscribes to that relay")
		}
		// An unconfirmed duplicate usually means the confirmation mail
		// got lost. Resend it and route them back to the pending page.
		existingSubs, err := uc.subscriptionRepo.ListBySubscriber(ctx, existing.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		if err := uc.mailer.SendConfirmation(existing.Email(), relay.DisplayName(), existing.ConfirmAuth()); err != nil {
			uc.logger.Errorw("failed to resend confirmation mail", "subscriber_id", existing.ID(), "error", err)
		}
		uc.logger.Infow("confirmation resent for unconfirmed duplicate", "id", existing.ID())
		return buildSubscriberResponse(existing, relay, existingSubs), nil
	}

	sub, err := subscriber.NewSubscriber(req.Email, relay.ID(), uc.clock.Now())
	if err != nil {
		return nil, errors.NewValidationError("invalid subscription request", err.Error())
	}

	if err := uc.subscriberRepo.Create(ctx, sub); err != nil {
		if errors.IsDuplicateError(err) {
			return nil, errors.NewConflictError("this email address already subscribes to that relay")
		}
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	subs, err := buildSubscriptions(sub.ID(), req, uc.clock)
	if err != nil {
		// Roll back the half-created subscriber so a retry is clean.
		if delErr := uc.subscriberRepo.Delete(ctx, sub.ID()); delErr != nil {
			uc.logger.Errorw("failed to roll back subscriber", "id", sub.ID(), "error", delErr)
		}
		return nil, err
	}
	for _, s := range subs {
		if err := uc.subscriptionRepo.Create(ctx, s); err != nil {
			if delErr := uc.subscriberRepo.Delete(ctx, sub.ID()); delErr != nil {
				uc.logger.Errorw("failed to roll back subscriber", "id", sub.ID(), "error", delErr)
			}
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
	}

	// Confirmation mail failure is not fatal; the pending page offers a
	// resend link.
	if err := uc.mailer.SendConfirmation(sub.Email(), relay.DisplayName(), sub.ConfirmAuth()); err != nil {
		uc.logger.Errorw("failed to send confirmation mail", "subscriber_id", sub.ID(), "error", err)
	}

	uc.logger.Infow("subscriber created", "id", sub.ID(), "router_id", relay.ID(), "rules", len(subs))

	return buildSubscriberResponse(sub, relay, subs), nil
}

func buildSubscriberResponse(sub *subscriber.Subscriber, relay *router.Router, subs []*subscription.Subscription) *dto.SubscriberResponse {
	resp := &dto.SubscriberResponse{
		Email:             sub.Email(),
		RouterName:        relay.DisplayName(),
		RouterFingerprint: relay.SpacedFingerprint(),
		Confirmed:         sub.Confirmed(),
		ConfirmAuth:       sub.ConfirmAuth(),
		UnsubsAuth:        sub.UnsubsAuth(),
		PrefAuth:          sub.PrefAuth(),
	}
	for _, s := range subs {
		resp.Subscriptions = append(resp.Subscriptions, dto.SubscriptionSettings{
			Type:         string(s.Type()),
			GraceHours:   s.GraceHours(),
			NotifyType:   string(s.NotifyType()),
			ThresholdKBs: s.ThresholdKBs(),
		})
	}
	return resp
}
