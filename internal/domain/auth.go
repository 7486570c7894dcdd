// Package domain contains the core entities and the ports to the identity
// provider, the record backend and local persistence.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSession indicates that the identity provider has no active session.
	ErrNoSession = errors.New("no active session")
	// ErrSessionActive indicates a login attempt while a session is already active.
	ErrSessionActive = errors.New("a session is already active")
	// ErrInvalidCredentials indicates that the email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken indicates that an account with the email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordPolicy indicates that the password was rejected by policy.
	ErrPasswordPolicy = errors.New("password does not meet policy")
	// ErrUnsupported indicates an operation the provider does not offer.
	ErrUnsupported = errors.New("operation not supported by identity provider")
)

// User is the identity the provider reports for the current session.
type User struct {
	ID    string
	Email string
	Name  string
}

// Session is the opaque credential issued by an identity provider. Only
// UserID is ever read outside the provider adapter.
type Session struct {
	ID        string
	UserID    string
	Provider  string
	Secret    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// IdentityProvider is the port to the external identity service.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password, name string) (string, error)
	CreateSession(ctx context.Context, email, password string) (*Session, error)
	CurrentUser(ctx context.Context) (*User, error)
	DestroyAllSessions(ctx context.Context) error
}

// SessionStore keeps the current credential per profile between runs.
// Get returns nil, nil when no credential is stored.
type SessionStore interface {
	Get(ctx context.Context, profile string) (*Session, error)
	Put(ctx context.Context, profile string, s *Session) error
	Delete(ctx context.Context, profile string) error
}

// Account is a user record owned by the local identity provider.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountRepository persists local accounts. Lookups return nil, nil when
// nothing matches.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, a *Account) error
}

// IssuedSession is the provider-side record of a session it has issued.
type IssuedSession struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IssuedSessionRepository persists sessions issued by the local provider.
type IssuedSessionRepository interface {
	Create(ctx context.Context, s *IssuedSession) error
	Get(ctx context.Context, id string) (*IssuedSession, error)
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) error
}
