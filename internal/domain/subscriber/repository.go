package subscriber

import "context"

type Repository interface {
	Create(ctx context.Context, sub *Subscriber) error
	GetByID(ctx context.Context, id uint) (*Subscriber, error)
	GetByEmailAndRouter(ctx context.Context, email string, routerID uint) (*Subscriber, error)
	GetByConfirmAuth(ctx context.Context, key string) (*Subscriber, error)
	GetByUnsubsAuth(ctx context.Context, key string) (*Subscriber, error)
	GetByPrefAuth(ctx context.Context, key string) (*Subscriber, error)
	Update(ctx context.Context, sub *Subscriber) error

	// Delete removes the subscriber and, through the FK cascade, all of
	// their subscriptions.
	Delete(ctx context.Context, id uint) error

	// ListConfirmedByRouter returns confirmed subscribers of one relay.
	ListConfirmedByRouter(ctx context.Context, routerID uint) ([]*Subscriber, error)
}
