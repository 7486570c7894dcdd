package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"healthmate/internal/domain"
)

// Target names a place the consumer should navigate to.
type Target string

const (
	TargetHome  Target = "home"
	TargetLogin Target = "login"
)

const (
	// DefaultRedirectDelay is how long the "not logged in" notice is shown.
	DefaultRedirectDelay = time.Second
	// DefaultAuthRedirectDelay is how long login/logout notices are shown.
	DefaultAuthRedirectDelay = 800 * time.Millisecond
)

const notLoggedInNotice = "You are not logged in. Redirecting to login..."

// Redirect tells the consumer to show Notice, wait After, then go to Target.
type Redirect struct {
	Target Target
	After  time.Duration
	Notice string
}

// RedirectError is returned when identity resolution fails. It is a
// navigation signal, not a hard failure.
type RedirectError struct {
	Redirect
	Err error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Notice, e.Err)
}

func (e *RedirectError) Unwrap() error { return e.Err }

// IdentityResolver is the part of the identity provider a page needs.
type IdentityResolver interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// identityGate resolves the current user once per page activation.
type identityGate struct {
	resolver IdentityResolver
	delay    time.Duration

	once sync.Once
	user *domain.User
	err  error
}

func newIdentityGate(resolver IdentityResolver, delay time.Duration) *identityGate {
	if delay <= 0 {
		delay = DefaultRedirectDelay
	}
	return &identityGate{resolver: resolver, delay: delay}
}

// resolve queries the provider on first use and memoises the outcome.
func (g *identityGate) resolve(ctx context.Context) (*domain.User, error) {
	g.once.Do(func() {
		user, err := g.resolver.CurrentUser(ctx)
		if err == nil && (user == nil || user.ID == "") {
			err = domain.ErrNoSession
		}
		if err != nil {
			slog.Info("identity.unresolved", "err", err)
			g.err = &RedirectError{
				Redirect: Redirect{Target: TargetLogin, After: g.delay, Notice: notLoggedInNotice},
				Err:      err,
			}
			return
		}
		g.user = user
	})
	return g.user, g.err
}
