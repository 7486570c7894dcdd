// Package appwrite is the identity provider backed by an Appwrite project.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthmate/internal/domain"
)

// ProviderName tags sessions issued by this adapter.
const ProviderName = "appwrite"

const (
	projectHeader  = "X-Appwrite-Project"
	sessionHeader  = "X-Appwrite-Session"
	fallbackHeader = "X-Fallback-Cookies"
)

// Client talks to the Appwrite account API and keeps the session credential
// in Store under Profile.
type Client struct {
	Endpoint   string
	ProjectID  string
	HTTPClient *http.Client
	Store      domain.SessionStore
	Profile    string
}

var _ domain.IdentityProvider = (*Client)(nil)

type accountResponse struct {
	ID    string `json:"$id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionResponse struct {
	ID      string `json:"$id"`
	UserID  string `json:"userId"`
	Expire  string `json:"expire"`
	Secret  string `json:"secret"`
	Created string `json:"$createdAt"`
}

// CreateAccount registers a new user and returns its id.
func (c *Client) CreateAccount(ctx context.Context, email, password, name string) (string, error) {
	body := map[string]string{
		"userId":   uuid.NewString(),
		"email":    email,
		"password": password,
	}
	if name != "" {
		body["name"] = name
	}
	var out accountResponse
	if _, err := c.do(ctx, opSignup, http.MethodPost, "/account", body, "", &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateSession logs in with email and password. The stored credential is
// sent along so that Appwrite reports an already active session.
func (c *Client) CreateSession(ctx context.Context, email, password string) (*domain.Session, error) {
	current, err := c.Store.Get(ctx, c.Profile)
	if err != nil {
		return nil, fmt.Errorf("read stored session: %w", err)
	}
	secret := ""
	if current != nil {
		secret = current.Secret
	}

	body := map[string]string{"email": email, "password": password}
	var out sessionResponse
	resp, err := c.do(ctx, opLogin, http.MethodPost, "/account/sessions/email", body, secret, &out)
	if err != nil {
		return nil, err
	}

	s := &domain.Session{
		ID:        out.ID,
		UserID:    out.UserID,
		Provider:  ProviderName,
		Secret:    out.Secret,
		ExpiresAt: parseTime(out.Expire),
		CreatedAt: parseTime(out.Created),
	}
	if s.Secret == "" {
		s.Secret = c.sessionFromResponse(resp)
	}
	if s.Secret == "" {
		return nil, fmt.Errorf("appwrite returned no session secret")
	}
	if err := c.Store.Put(ctx, c.Profile, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

// CurrentUser returns the user of the stored session.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	current, err := c.Store.Get(ctx, c.Profile)
	if err != nil {
		return nil, fmt.Errorf("read stored session: %w", err)
	}
	if current == nil || current.Secret == "" {
		return nil, domain.ErrNoSession
	}
	if current.Expired(time.Now()) {
		return nil, domain.ErrNoSession
	}

	var out accountResponse
	if _, err := c.do(ctx, opAccount, http.MethodGet, "/account", nil, current.Secret, &out); err != nil {
		return nil, err
	}
	return &domain.User{ID: out.ID, Email: out.Email, Name: out.Name}, nil
}

// DestroyAllSessions logs the user out everywhere and forgets the stored
// credential.
func (c *Client) DestroyAllSessions(ctx context.Context) error {
	current, err := c.Store.Get(ctx, c.Profile)
	if err != nil {
		return fmt.Errorf("read stored session: %w", err)
	}
	if current == nil || current.Secret == "" {
		return domain.ErrNoSession
	}

	_, err = c.do(ctx, opLogout, http.MethodDelete, "/account/sessions", nil, current.Secret, nil)
	if err != nil && !errors.Is(err, domain.ErrNoSession) {
		return err
	}
	if derr := c.Store.Delete(ctx, c.Profile); derr != nil {
		return fmt.Errorf("forget session: %w", derr)
	}
	return err
}

// do sends one request. Non-2xx responses are decoded into *Error.
func (c *Client) do(ctx context.Context, op operation, method, path string, in any, secret string, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal appwrite payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	req, err := http.NewRequestWithContext(ctx, method, endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("create appwrite request: %w", err)
	}
	req.Header.Set(projectHeader, c.ProjectID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if secret != "" {
		req.Header.Set(sessionHeader, secret)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute appwrite request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read appwrite response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		slog.Debug("appwrite.error", "path", path, "status", resp.StatusCode, "type", apiErr.Type)
		return resp, classify(op, apiErr)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("decode appwrite response: %w", err)
		}
	}
	return resp, nil
}

// sessionFromResponse extracts the session secret from the cookie Appwrite
// sets, or from its fallback header for clients without a cookie jar.
func (c *Client) sessionFromResponse(resp *http.Response) string {
	name := "a_session_" + strings.ToLower(c.ProjectID)
	for _, ck := range resp.Cookies() {
		if strings.ToLower(ck.Name) == name && ck.Value != "" {
			return ck.Value
		}
	}
	if raw := resp.Header.Get(fallbackHeader); raw != "" {
		var cookies map[string]string
		if err := json.Unmarshal([]byte(raw), &cookies); err == nil {
			for k, v := range cookies {
				if strings.ToLower(k) == name {
					return v
				}
			}
		}
	}
	return ""
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return &http.Client{Timeout: 12 * time.Second}
	}
	return c.HTTPClient
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
