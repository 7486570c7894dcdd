package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"healthmate/internal/adapter/appwrite"
	"healthmate/internal/adapter/httpclient"
	"healthmate/internal/adapter/local"
	"healthmate/internal/adapter/memory"
	"healthmate/internal/adapter/openid"
	"healthmate/internal/adapter/recordapi"
	"healthmate/internal/adapter/sqlstore"
	"healthmate/internal/config"
	"healthmate/internal/domain"
	"healthmate/internal/logger"
)

// deps is everything a command needs, built from configuration.
type deps struct {
	cfg      *config.Config
	identity domain.IdentityProvider
	records  *recordapi.Client

	closers []io.Closer
}

func (o *options) open(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.profile != "" {
		cfg.Store.Profile = o.profile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	d := &deps{cfg: cfg}
	d.closers = append(d.closers, logger.Init(cfg.Log))

	st, err := d.openStores(cfg.Store)
	if err != nil {
		d.Close()
		return nil, err
	}

	client := httpclient.New(cfg.Backend.Timeout, "healthmate/"+version)
	d.records = &recordapi.Client{BaseURL: cfg.Backend.BaseURL, HTTPClient: client}

	d.identity, err = newIdentityProvider(ctx, cfg, st, client)
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// stores are the persistence ports the identity adapters use.
type stores struct {
	accounts    domain.AccountRepository
	sessions    domain.IssuedSessionRepository
	credentials domain.SessionStore
}

// openStores opens the configured store. The memory driver keeps nothing
// between invocations and suits a single shell session.
func (d *deps) openStores(cfg config.StoreConfig) (stores, error) {
	if cfg.Driver == config.DriverMemory {
		db := memory.New()
		return stores{accounts: db, sessions: db.NewSessionRepo(), credentials: db.NewCredentialStore()}, nil
	}
	db, err := sqlstore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return stores{}, fmt.Errorf("open store: %w", err)
	}
	d.closers = append(d.closers, db)
	return stores{accounts: db, sessions: sqlstore.NewSessionRepo(db), credentials: sqlstore.NewCredentialStore(db)}, nil
}

func newIdentityProvider(ctx context.Context, cfg *config.Config, st stores, client *http.Client) (domain.IdentityProvider, error) {
	profile := cfg.Store.Profile

	switch cfg.Identity.Provider {
	case config.ProviderAppwrite:
		return &appwrite.Client{
			Endpoint:   cfg.Identity.Appwrite.Endpoint,
			ProjectID:  cfg.Identity.Appwrite.ProjectID,
			HTTPClient: client,
			Store:      st.credentials,
			Profile:    profile,
		}, nil
	case config.ProviderOIDC:
		oc := cfg.Identity.OIDC
		p, err := openid.New(ctx, openid.Config{
			IssuerURL:    oc.IssuerURL,
			ClientID:     oc.ClientID,
			ClientSecret: oc.ClientSecret,
			Scopes:       oc.Scopes,
		}, st.credentials, profile, client)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderLocal:
		lc := cfg.Identity.Local
		return local.New(st.accounts, st.sessions, st.credentials, profile, []byte(lc.JWTSecret), lc.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Identity.Provider)
	}
}

// Close releases the store and flushes the log, most recent first.
func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i].Close())
	}
	return errors.Join(errs...)
}
