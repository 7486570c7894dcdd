package app

import (
	"context"
	"time"

	"healthmate/internal/domain"
)

// ListingAPI serves the fixed-window listings of one record type.
type ListingAPI[R domain.Record] interface {
	Today(ctx context.Context, userID string) ([]R, error)
	Week(ctx context.Context, userID string) ([]R, error)
	All(ctx context.Context, userID string) ([]R, error)
}

// ListingService returns the current user's records for the backend's
// windows: today, the last seven days, or everything. Records are returned
// in server order.
type ListingService[R domain.Record] struct {
	api  ListingAPI[R]
	gate *identityGate
}

// NewListingService creates a ListingService.
func NewListingService[R domain.Record](identity IdentityResolver, api ListingAPI[R], redirectDelay time.Duration) *ListingService[R] {
	return &ListingService[R]{api: api, gate: newIdentityGate(identity, redirectDelay)}
}

func (s *ListingService[R]) Today(ctx context.Context) ([]R, error) {
	return s.list(ctx, s.api.Today)
}

func (s *ListingService[R]) Week(ctx context.Context) ([]R, error) {
	return s.list(ctx, s.api.Week)
}

func (s *ListingService[R]) All(ctx context.Context) ([]R, error) {
	return s.list(ctx, s.api.All)
}

func (s *ListingService[R]) list(ctx context.Context, fetch func(context.Context, string) ([]R, error)) ([]R, error) {
	user, err := s.gate.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, user.ID)
}
