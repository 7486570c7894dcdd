// Package memory implements in-memory stores for development and testing.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"healthmate/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu          sync.Mutex
	accounts    []*domain.Account
	sessions    map[string]*domain.IssuedSession
	credentials map[string]*domain.Session
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions:    make(map[string]*domain.IssuedSession),
		credentials: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.AccountRepository = (*DB)(nil)
var _ domain.IssuedSessionRepository = (*SessionRepo)(nil)
var _ domain.SessionStore = (*CredentialStore)(nil)

// --- AccountRepository ---

// GetByEmail retrieves an account by email, ignoring case.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range db.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByID retrieves an account by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range db.accounts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// Create stores a new account. The email must be unused.
func (db *DB) Create(ctx context.Context, a *domain.Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return domain.ErrEmailTaken
		}
	}
	cp := *a
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	db.accounts = append(db.accounts, &cp)
	return nil
}

// --- IssuedSessionRepository ---

// SessionRepo implements issued session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create records an issued session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.IssuedSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := *s
	r.db.sessions[s.ID] = &cp
	return nil
}

// Get retrieves an issued session. Expired sessions are dropped and
// reported as missing.
func (r *SessionRepo) Get(ctx context.Context, id string) (*domain.IssuedSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok {
		return nil, nil
	}
	if time.Now().After(s.ExpiresAt) {
		delete(r.db.sessions, id)
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// DeleteByUser removes every session issued to userID.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k, v := range r.db.sessions {
		if v.UserID == userID {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// DeleteExpired deletes all sessions expired at now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// --- SessionStore ---

// CredentialStore keeps client-side credentials per profile.
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a new credential store.
func (db *DB) NewCredentialStore() *CredentialStore {
	return &CredentialStore{db: db}
}

// Get returns the stored credential of profile, or nil.
func (c *CredentialStore) Get(ctx context.Context, profile string) (*domain.Session, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	s, ok := c.db.credentials[profile]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// Put replaces the credential of profile.
func (c *CredentialStore) Put(ctx context.Context, profile string, s *domain.Session) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	cp := *s
	c.db.credentials[profile] = &cp
	return nil
}

// Delete forgets the credential of profile.
func (c *CredentialStore) Delete(ctx context.Context, profile string) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	delete(c.db.credentials, profile)
	return nil
}
