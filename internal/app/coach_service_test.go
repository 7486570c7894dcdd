package app

import (
	"context"
	"errors"
	"testing"

	"healthmate/internal/domain"
)

type mockCoachAPI struct {
	summaryFn func(ctx context.Context, userID string) (*domain.CoachSummary, error)
	calls     []string
}

func (m *mockCoachAPI) Summary(ctx context.Context, userID string) (*domain.CoachSummary, error) {
	m.calls = append(m.calls, userID)
	if m.summaryFn != nil {
		return m.summaryFn(ctx, userID)
	}
	return &domain.CoachSummary{HealthLogsCount: 3, MealLogsCount: 5, Summary: "Keep it up."}, nil
}

func TestCoachService_Generate(t *testing.T) {
	idp := &mockIdentityProvider{}
	api := &mockCoachAPI{}
	svc := NewCoachService(idp, api, 0)

	got, err := svc.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.Summary != "Keep it up." || got.HealthLogsCount != 3 || got.MealLogsCount != 5 {
		t.Errorf("summary not returned verbatim: %+v", got)
	}
	if len(api.calls) != 1 || api.calls[0] != "user-1" {
		t.Errorf("expected one call for user-1, got %v", api.calls)
	}
}

func TestCoachService_ResolvesIdentityOnce(t *testing.T) {
	lookups := 0
	idp := &mockIdentityProvider{currentUserFn: func(context.Context) (*domain.User, error) {
		lookups++
		return &domain.User{ID: "u2"}, nil
	}}
	svc := NewCoachService(idp, &mockCoachAPI{}, 0)
	for i := 0; i < 3; i++ {
		if _, err := svc.Generate(context.Background()); err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}
	if lookups != 1 {
		t.Errorf("expected 1 identity lookup, got %d", lookups)
	}
}

func TestCoachService_NoSessionRedirects(t *testing.T) {
	idp := &mockIdentityProvider{currentUserFn: func(context.Context) (*domain.User, error) {
		return nil, domain.ErrNoSession
	}}
	api := &mockCoachAPI{}
	_, err := NewCoachService(idp, api, 0).Generate(context.Background())

	var re *RedirectError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RedirectError, got %v", err)
	}
	if re.Target != TargetLogin || re.After != DefaultRedirectDelay {
		t.Errorf("unexpected redirect %+v", re.Redirect)
	}
	if !errors.Is(err, domain.ErrNoSession) {
		t.Error("expected redirect to unwrap to ErrNoSession")
	}
	if len(api.calls) != 0 {
		t.Error("no summary may be requested without a user")
	}
}

func TestCoachService_BackendError(t *testing.T) {
	boom := errors.New("request failed with status 500")
	api := &mockCoachAPI{summaryFn: func(context.Context, string) (*domain.CoachSummary, error) { return nil, boom }}
	_, err := NewCoachService(&mockIdentityProvider{}, api, 0).Generate(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected backend error, got %v", err)
	}
}
