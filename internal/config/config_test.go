package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points the config directory and working directory at fresh temp
// dirs so no real files are read.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("HEALTHMATE_CONFIG", "")
	{
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Backend.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("unexpected base url %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout != 12*time.Second {
		t.Errorf("unexpected timeout %v", c.Backend.Timeout)
	}
	if c.Identity.Provider != ProviderAppwrite || c.Store.Driver != "sqlite" || c.Store.Profile != "default" {
		t.Errorf("unexpected defaults %+v", c)
	}
	if !strings.HasSuffix(c.Store.DSN, filepath.Join("healthmate", "healthmate.db")) {
		t.Errorf("expected dsn under the config dir, got %q", c.Store.DSN)
	}
	if c.UI.RedirectDelay != time.Second || c.UI.AuthRedirectDelay != 800*time.Millisecond {
		t.Errorf("unexpected ui delays %+v", c.UI)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
backend:
  base_url: http://backend.example:9000
  timeout: 3s
identity:
  provider: local
  local:
    jwt_secret: file-secret-0123456789
store:
  profile: work
ui:
  redirect_delay: 250ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BACKEND_URL", "http://from-env:8000")
	t.Setenv("LOCAL_JWT_SECRET", "")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Backend.BaseURL != "http://from-env:8000" {
		t.Errorf("expected env to win, got %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout != 3*time.Second {
		t.Errorf("expected file timeout, got %v", c.Backend.Timeout)
	}
	if c.Identity.Provider != ProviderLocal || c.Identity.Local.JWTSecret != "file-secret-0123456789" {
		t.Errorf("unexpected identity %+v", c.Identity)
	}
	if c.Store.Profile != "work" || c.Store.Driver != "sqlite" {
		t.Errorf("expected file to override only what it sets, got %+v", c.Store)
	}
	if c.UI.RedirectDelay != 250*time.Millisecond || c.UI.AuthRedirectDelay != 800*time.Millisecond {
		t.Errorf("unexpected ui %+v", c.UI)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	t.Setenv("APPWRITE_PROJECT_ID", "")
	os.Unsetenv("APPWRITE_PROJECT_ID")

	if err := os.WriteFile(".env", []byte("APPWRITE_PROJECT_ID=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Identity.Appwrite.ProjectID != "from-dotenv" {
		t.Errorf("expected .env value, got %q", c.Identity.Appwrite.ProjectID)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"appwrite complete", func(c *Config) {
			c.Identity.Appwrite = AppwriteConfig{Endpoint: "https://cloud.appwrite.io/v1", ProjectID: "p"}
		}, ""},
		{"appwrite missing project", func(c *Config) {
			c.Identity.Appwrite = AppwriteConfig{Endpoint: "https://cloud.appwrite.io/v1"}
		}, "APPWRITE_PROJECT_ID is required"},
		{"oidc missing client", func(c *Config) {
			c.Identity.Provider = ProviderOIDC
			c.Identity.OIDC.IssuerURL = "https://id.example"
		}, "OIDC_CLIENT_ID is required"},
		{"local short secret", func(c *Config) {
			c.Identity.Provider = ProviderLocal
			c.Identity.Local.JWTSecret = "short"
		}, "LOCAL_JWT_SECRET"},
		{"unknown provider", func(c *Config) {
			c.Identity.Provider = "ldap"
		}, `unknown identity provider "ldap"`},
		{"unknown driver", func(c *Config) {
			c.Identity.Provider = ProviderLocal
			c.Identity.Local.JWTSecret = "0123456789abcdef"
			c.Store.Driver = "oracle"
		}, `unknown store driver "oracle"`},
		{"memory needs no dsn", func(c *Config) {
			c.Identity.Provider = ProviderLocal
			c.Identity.Local.JWTSecret = "0123456789abcdef"
			c.Store = StoreConfig{Driver: DriverMemory, Profile: "default"}
		}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
