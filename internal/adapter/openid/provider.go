// Package openid is the identity provider backed by an OpenID Connect issuer
// that allows the resource owner password grant.
package openid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"healthmate/internal/domain"
)

// ProviderName tags sessions issued by this adapter.
const ProviderName = "oidc"

// Config names the issuer and the client registered with it.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Provider implements domain.IdentityProvider on top of an OIDC issuer.
type Provider struct {
	oauth2     *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
	store      domain.SessionStore
	profile    string
}

var _ domain.IdentityProvider = (*Provider)(nil)

// credential is what the session secret holds.
type credential struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Sid   string `json:"sid"`
}

// New discovers the issuer and returns a provider.
func New(ctx context.Context, cfg Config, store domain.SessionStore, profile string, httpClient *http.Client) (*Provider, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	ctx = oidc.ClientContext(ctx, httpClient)
	issuer, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	verifier := issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return newProvider(cfg, issuer.Endpoint(), verifier, store, profile, httpClient), nil
}

func newProvider(cfg Config, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier, store domain.SessionStore, profile string, httpClient *http.Client) *Provider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile", oidc.ScopeOfflineAccess}
	}
	return &Provider{
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		verifier:   verifier,
		httpClient: httpClient,
		store:      store,
		profile:    profile,
	}
}

// CreateAccount is not offered by OIDC issuers.
func (p *Provider) CreateAccount(ctx context.Context, email, password, name string) (string, error) {
	return "", domain.ErrUnsupported
}

// CreateSession exchanges the credentials for tokens and stores them.
func (p *Provider) CreateSession(ctx context.Context, email, password string) (*domain.Session, error) {
	if _, err := p.CurrentUser(ctx); err == nil {
		return nil, domain.ErrSessionActive
	} else if !errors.Is(err, domain.ErrNoSession) {
		return nil, err
	}

	tok, err := p.oauth2.PasswordCredentialsToken(p.clientContext(ctx), email, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && (re.ErrorCode == "invalid_grant" || (re.Response != nil && re.Response.StatusCode == http.StatusUnauthorized)) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, re.ErrorDescription)
		}
		return nil, fmt.Errorf("oidc token: %w", err)
	}

	cred, idToken, c, err := p.verifyToken(ctx, tok, "")
	if err != nil {
		return nil, err
	}
	s, err := p.session(c, idToken.Expiry, cred)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(ctx, p.profile, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

// CurrentUser verifies the stored ID token, refreshing it once when it has
// expired and a refresh token is available.
func (p *Provider) CurrentUser(ctx context.Context) (*domain.User, error) {
	stored, err := p.store.Get(ctx, p.profile)
	if err != nil {
		return nil, fmt.Errorf("read stored session: %w", err)
	}
	if stored == nil || stored.Secret == "" {
		return nil, domain.ErrNoSession
	}
	var cred credential
	if err := json.Unmarshal([]byte(stored.Secret), &cred); err != nil {
		return nil, fmt.Errorf("%w: unreadable credential", domain.ErrNoSession)
	}

	idToken, err := p.verifier.Verify(ctx, cred.IDToken)
	var expired *oidc.TokenExpiredError
	if errors.As(err, &expired) && cred.RefreshToken != "" {
		return p.refresh(ctx, stored, cred.RefreshToken)
	}
	if err != nil {
		slog.Debug("oidc.verify.failed", "err", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrNoSession, err)
	}

	var c claims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &domain.User{ID: c.Sub, Email: c.Email, Name: c.Name}, nil
}

// DestroyAllSessions forgets the stored tokens.
func (p *Provider) DestroyAllSessions(ctx context.Context) error {
	stored, err := p.store.Get(ctx, p.profile)
	if err != nil {
		return fmt.Errorf("read stored session: %w", err)
	}
	if stored == nil {
		return domain.ErrNoSession
	}
	return p.store.Delete(ctx, p.profile)
}

func (p *Provider) refresh(ctx context.Context, stored *domain.Session, refreshToken string) (*domain.User, error) {
	src := p.oauth2.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)})
	tok, err := src.Token()
	if err != nil {
		slog.Info("oidc.refresh.failed", "err", err)
		return nil, fmt.Errorf("%w: refresh failed", domain.ErrNoSession)
	}

	cred, idToken, c, err := p.verifyToken(ctx, tok, refreshToken)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(cred)
	if err != nil {
		return nil, err
	}
	updated := *stored
	updated.Secret = string(raw)
	updated.ExpiresAt = idToken.Expiry
	if err := p.store.Put(ctx, p.profile, &updated); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	slog.Debug("oidc.refresh.ok", "sub", c.Sub)
	return &domain.User{ID: c.Sub, Email: c.Email, Name: c.Name}, nil
}

// verifyToken checks the ID token in tok. previousRefresh is kept when the
// issuer does not rotate refresh tokens.
func (p *Provider) verifyToken(ctx context.Context, tok *oauth2.Token, previousRefresh string) (credential, *oidc.IDToken, claims, error) {
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return credential{}, nil, claims{}, errors.New("oidc: no id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return credential{}, nil, claims{}, fmt.Errorf("oidc: verify id_token: %w", err)
	}
	var c claims
	if err := idToken.Claims(&c); err != nil {
		return credential{}, nil, claims{}, fmt.Errorf("parse claims: %w", err)
	}
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return credential{IDToken: rawIDToken, RefreshToken: refresh}, idToken, c, nil
}

func (p *Provider) session(c claims, expiry time.Time, cred credential) (*domain.Session, error) {
	raw, err := json.Marshal(cred)
	if err != nil {
		return nil, err
	}
	id := c.Sid
	if id == "" {
		id = uuid.NewString()
	}
	return &domain.Session{
		ID:        id,
		UserID:    c.Sub,
		Provider:  ProviderName,
		Secret:    string(raw),
		ExpiresAt: expiry,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}
