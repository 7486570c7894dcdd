package app

import (
	"context"
	"time"

	"healthmate/internal/domain"
)

// CoachAPI fetches the weekly summary the backend computes for a user.
type CoachAPI interface {
	Summary(ctx context.Context, userID string) (*domain.CoachSummary, error)
}

// CoachService encapsulates the coach page: identity once, then summaries on
// demand.
type CoachService struct {
	api  CoachAPI
	gate *identityGate
}

// NewCoachService creates a CoachService. redirectDelay is used when no user
// is logged in; zero selects DefaultRedirectDelay.
func NewCoachService(identity IdentityResolver, api CoachAPI, redirectDelay time.Duration) *CoachService {
	return &CoachService{api: api, gate: newIdentityGate(identity, redirectDelay)}
}

// Generate returns the current user's summary as the backend reports it. A
// missing session yields a *RedirectError.
func (s *CoachService) Generate(ctx context.Context) (*domain.CoachSummary, error) {
	user, err := s.gate.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.Summary(ctx, user.ID)
}
