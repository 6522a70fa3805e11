package subscription

import "context"

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetBySubscriberAndType(ctx context.Context, subscriberID uint, t Type) (*Subscription, error)
	ListBySubscriber(ctx context.Context, subscriberID uint) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id uint) error

	// ListConfirmedByType returns, for one subscription type, every
	// subscription whose subscriber has confirmed, joined with the
	// subscriber's email and relay. This is the poller's working set.
	ListConfirmedByType(ctx context.Context, t Type) ([]*CheckTarget, error)
}

// CheckTarget pairs a subscription with the delivery details a poll-cycle
// check needs, avoiding an N+1 walk over subscribers and relays.
type CheckTarget struct {
	Subscription *Subscription
	Email        string
	UnsubsAuth   string
	PrefAuth     string
	RouterID     uint
}
