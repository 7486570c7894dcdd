package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"healthmate/internal/domain"
)

// sessionActiveText is matched when a provider has no structured code for
// "a session is already active".
const sessionActiveText = "session is active"

var (
	errLoginFailed  = errors.New("login failed, please check your credentials")
	errSignupFailed = errors.New("signup failed, please try again")
	errLogoutFailed = errors.New("failed to log out, try again")
)

// AuthService drives the login, signup and logout flows.
type AuthService struct {
	idp   domain.IdentityProvider
	delay time.Duration
}

// NewAuthService creates an AuthService. delay is how long success notices
// are shown before navigating; zero selects DefaultAuthRedirectDelay.
func NewAuthService(idp domain.IdentityProvider, delay time.Duration) *AuthService {
	if delay <= 0 {
		delay = DefaultAuthRedirectDelay
	}
	return &AuthService{idp: idp, delay: delay}
}

// Login creates a session. A login attempted while a session is already
// active counts as success.
func (s *AuthService) Login(ctx context.Context, email, password string) (Redirect, error) {
	_, err := s.idp.CreateSession(ctx, email, password)
	if err == nil {
		slog.Info("auth.login.ok", "email", email)
		return Redirect{Target: TargetHome, After: s.delay, Notice: "Login successful! Redirecting..."}, nil
	}
	if IsSessionActive(err) {
		slog.Info("auth.login.already_active", "email", email)
		return Redirect{Target: TargetHome, After: s.delay, Notice: "You are already logged in. Redirecting..."}, nil
	}
	slog.Warn("auth.login.failed", "email", email, "err", err)
	return Redirect{}, withFallback(err, errLoginFailed)
}

// Signup creates an account and logs into it.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (Redirect, error) {
	userID, err := s.idp.CreateAccount(ctx, email, password, strings.TrimSpace(name))
	if err != nil {
		slog.Warn("auth.signup.failed", "email", email, "err", err)
		return Redirect{}, withFallback(err, errSignupFailed)
	}
	if _, err := s.idp.CreateSession(ctx, email, password); err != nil {
		slog.Warn("auth.signup.login_failed", "user_id", userID, "err", err)
		return Redirect{}, withFallback(err, errSignupFailed)
	}
	slog.Info("auth.signup.ok", "user_id", userID)
	return Redirect{Target: TargetHome, After: s.delay, Notice: "Signup successful! Redirecting..."}, nil
}

// Logout destroys every session of the current user.
func (s *AuthService) Logout(ctx context.Context) (Redirect, error) {
	if err := s.idp.DestroyAllSessions(ctx); err != nil {
		slog.Warn("auth.logout.failed", "err", err)
		return Redirect{}, withFallback(err, errLogoutFailed)
	}
	slog.Info("auth.logout.ok")
	return Redirect{Target: TargetLogin, After: s.delay, Notice: "You have been logged out. Redirecting to login..."}, nil
}

// Whoami reports the user of the active session.
func (s *AuthService) Whoami(ctx context.Context) (*domain.User, error) {
	return s.idp.CurrentUser(ctx)
}

// IsSessionActive reports whether err means a session already exists. The
// structured sentinel is preferred; the message match covers providers that
// only report text.
func IsSessionActive(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, domain.ErrSessionActive) || strings.Contains(err.Error(), sessionActiveText)
}

func withFallback(err, fallback error) error {
	if strings.TrimSpace(err.Error()) == "" {
		return fallback
	}
	return err
}
