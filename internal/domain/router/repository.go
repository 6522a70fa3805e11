package router

import "context"

type Repository interface {
	Create(ctx context.Context, router *Router) error
	GetByID(ctx context.Context, id uint) (*Router, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Router, error)
	Update(ctx context.Context, router *Router) error
	Delete(ctx context.Context, id uint) error

	// ListAll returns every tracked relay; the poller walks the full set
	// each cycle.
	ListAll(ctx context.Context) ([]*Router, error)

	// ListUnwelcomed returns up, stable relays whose operator has not been
	// welcomed yet.
	ListUnwelcomed(ctx context.Context) ([]*Router, error)
}
