// Package config loads the client configuration from defaults, a YAML file,
// a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Identity provider names.
const (
	ProviderAppwrite = "appwrite"
	ProviderOIDC     = "oidc"
	ProviderLocal    = "local"
)

// DriverMemory selects the in-process store, which keeps nothing between runs.
const DriverMemory = "memory"

const appDir = "healthmate"

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Identity IdentityConfig `yaml:"identity"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
	UI       UIConfig       `yaml:"ui"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type IdentityConfig struct {
	Provider string         `yaml:"provider"`
	Appwrite AppwriteConfig `yaml:"appwrite"`
	OIDC     OIDCConfig     `yaml:"oidc"`
	Local    LocalConfig    `yaml:"local"`
}

type AppwriteConfig struct {
	Endpoint  string `yaml:"endpoint"`
	ProjectID string `yaml:"project_id"`
}

type OIDCConfig struct {
	IssuerURL    string   `yaml:"issuer_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type LocalConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type StoreConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Profile string `yaml:"profile"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type UIConfig struct {
	RedirectDelay     time.Duration `yaml:"redirect_delay"`
	AuthRedirectDelay time.Duration `yaml:"auth_redirect_delay"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	dir := Dir()
	return &Config{
		Backend:  BackendConfig{BaseURL: "http://127.0.0.1:8000", Timeout: 12 * time.Second},
		Identity: IdentityConfig{Provider: ProviderAppwrite, Local: LocalConfig{SessionTTL: 30 * 24 * time.Hour}},
		Store:    StoreConfig{Driver: "sqlite", DSN: filepath.Join(dir, "healthmate.db"), Profile: "default"},
		Log:      LogConfig{Level: "info", File: filepath.Join(dir, "healthmate.log"), MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 30},
		UI:       UIConfig{RedirectDelay: time.Second, AuthRedirectDelay: 800 * time.Millisecond},
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, appDir)
}

// Load builds the configuration. configFile overrides the default lookup of
// $HEALTHMATE_CONFIG and <Dir>/config.yaml. A missing default file is not an
// error; a missing explicit file is.
func Load(configFile string) (*Config, error) {
	c := Default()

	path, explicit := configFile, configFile != ""
	if !explicit {
		if env := os.Getenv("HEALTHMATE_CONFIG"); env != "" {
			path, explicit = env, true
		} else {
			path = filepath.Join(Dir(), "config.yaml")
		}
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Values already in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	envOverride(&c.Backend.BaseURL, "BACKEND_URL")
	envOverrideDuration(&c.Backend.Timeout, "BACKEND_TIMEOUT")
	envOverride(&c.Identity.Provider, "IDENTITY_PROVIDER")
	envOverride(&c.Identity.Appwrite.Endpoint, "APPWRITE_ENDPOINT")
	envOverride(&c.Identity.Appwrite.ProjectID, "APPWRITE_PROJECT_ID")
	envOverride(&c.Identity.OIDC.IssuerURL, "OIDC_ISSUER_URL")
	envOverride(&c.Identity.OIDC.ClientID, "OIDC_CLIENT_ID")
	envOverride(&c.Identity.OIDC.ClientSecret, "OIDC_CLIENT_SECRET")
	envOverride(&c.Identity.Local.JWTSecret, "LOCAL_JWT_SECRET")
	envOverride(&c.Store.Driver, "STORE_DRIVER")
	envOverride(&c.Store.DSN, "DATABASE_URL")
	envOverride(&c.Store.Profile, "HEALTHMATE_PROFILE")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideBool(&c.Log.Console, "LOG_CONSOLE")

	return c, nil
}

// Validate reports settings the selected provider and store cannot run
// without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	switch c.Identity.Provider {
	case ProviderAppwrite:
		if c.Identity.Appwrite.Endpoint == "" {
			errs = append(errs, errors.New("APPWRITE_ENDPOINT is required"))
		}
		if c.Identity.Appwrite.ProjectID == "" {
			errs = append(errs, errors.New("APPWRITE_PROJECT_ID is required"))
		}
	case ProviderOIDC:
		if c.Identity.OIDC.IssuerURL == "" {
			errs = append(errs, errors.New("OIDC_ISSUER_URL is required"))
		}
		if c.Identity.OIDC.ClientID == "" {
			errs = append(errs, errors.New("OIDC_CLIENT_ID is required"))
		}
	case ProviderLocal:
		if len(c.Identity.Local.JWTSecret) < 16 {
			errs = append(errs, errors.New("LOCAL_JWT_SECRET of at least 16 characters is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown identity provider %q", c.Identity.Provider))
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "mysql":
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.DSN == "" && c.Store.Driver != DriverMemory {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Store.Profile == "" {
		errs = append(errs, errors.New("store.profile is required"))
	}
	return errors.Join(errs...)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
