// Package local is a self-contained identity provider for development. It
// keeps accounts and issued sessions in the local store and hands out signed
// session tokens.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"healthmate/internal/domain"
)

const (
	// ProviderName tags sessions issued by this adapter.
	ProviderName = "local"
	// DefaultSessionTTL is the lifetime of a session token.
	DefaultSessionTTL = 30 * 24 * time.Hour
	// MinPasswordLength is the password policy.
	MinPasswordLength = 8

	issuer = "healthmate-local"
)

// Provider implements domain.IdentityProvider without a remote service.
type Provider struct {
	accounts domain.AccountRepository
	sessions domain.IssuedSessionRepository
	store    domain.SessionStore
	profile  string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

var _ domain.IdentityProvider = (*Provider)(nil)

// New creates a local provider. secret signs the session tokens.
func New(accounts domain.AccountRepository, sessions domain.IssuedSessionRepository, store domain.SessionStore, profile string, secret []byte, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Provider{
		accounts: accounts,
		sessions: sessions,
		store:    store,
		profile:  profile,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
	}
}

// CreateAccount registers a new account.
func (p *Provider) CreateAccount(ctx context.Context, email, password, name string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", fmt.Errorf("invalid email %q", email)
	}
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: must be at least %d characters", domain.ErrPasswordPolicy, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	a := &domain.Account{
		ID:           uuid.NewString(),
		Email:        addr.Address,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, a); err != nil {
		return "", err
	}
	slog.Info("local.account.created", "user_id", a.ID)
	return a.ID, nil
}

// CreateSession authenticates and stores a fresh session token.
func (p *Provider) CreateSession(ctx context.Context, email, password string) (*domain.Session, error) {
	if _, err := p.CurrentUser(ctx); err == nil {
		return nil, domain.ErrSessionActive
	} else if !errors.Is(err, domain.ErrNoSession) {
		return nil, err
	}

	a, err := p.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := p.now().UTC()
	issued := &domain.IssuedSession{
		ID:        uuid.NewString(),
		UserID:    a.ID,
		ExpiresAt: now.Add(p.ttl),
		CreatedAt: now,
	}
	token, err := p.sign(issued)
	if err != nil {
		return nil, err
	}
	if err := p.sessions.Create(ctx, issued); err != nil {
		return nil, err
	}

	s := &domain.Session{
		ID:        issued.ID,
		UserID:    a.ID,
		Provider:  ProviderName,
		Secret:    token,
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: now,
	}
	if err := p.store.Put(ctx, p.profile, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

// CurrentUser validates the stored token against the issued sessions.
func (p *Provider) CurrentUser(ctx context.Context) (*domain.User, error) {
	claims, err := p.storedClaims(ctx)
	if err != nil {
		return nil, err
	}
	issued, err := p.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if issued == nil || issued.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: session revoked", domain.ErrNoSession)
	}
	a, err := p.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: account removed", domain.ErrNoSession)
	}
	return &domain.User{ID: a.ID, Email: a.Email, Name: a.Name}, nil
}

// DestroyAllSessions revokes every session of the current user.
func (p *Provider) DestroyAllSessions(ctx context.Context) error {
	claims, err := p.storedClaims(ctx)
	if err != nil {
		return err
	}
	if err := p.sessions.DeleteByUser(ctx, claims.Subject); err != nil {
		return err
	}
	if err := p.sessions.DeleteExpired(ctx, p.now()); err != nil {
		slog.Warn("local.sessions.cleanup_failed", "err", err)
	}
	return p.store.Delete(ctx, p.profile)
}

func (p *Provider) sign(s *domain.IssuedSession) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   s.UserID,
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *Provider) storedClaims(ctx context.Context) (*jwt.RegisteredClaims, error) {
	stored, err := p.store.Get(ctx, p.profile)
	if err != nil {
		return nil, fmt.Errorf("read stored session: %w", err)
	}
	if stored == nil || stored.Secret == "" {
		return nil, domain.ErrNoSession
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(stored.Secret, &claims,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoSession, err)
	}
	return &claims, nil
}
