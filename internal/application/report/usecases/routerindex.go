package usecases

import (
	"context"
	"fmt"

	"torweather/internal/domain/router"
)

// loadRouterIndex fetches every tracked relay keyed by id, so a check can
// walk its subscription list without a query per relay.
func loadRouterIndex(ctx context.Context, repo router.Repository) (map[uint]*router.Router, error) {
	relays, err := repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list relays: %w", err)
	}

	idx := make(map[uint]*router.Router, len(relays))
	for _, rt := range relays {
		idx[rt.ID()] = rt
	}
	return idx, nil
}
