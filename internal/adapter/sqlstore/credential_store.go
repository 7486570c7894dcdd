package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"healthmate/internal/domain"
)

// CredentialStore keeps client-side credentials per profile.
type CredentialStore struct {
	db *DB
}

var _ domain.SessionStore = (*CredentialStore)(nil)

// NewCredentialStore wraps a DB as a SessionStore.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Get returns the stored credential of profile, or nil.
func (c *CredentialStore) Get(ctx context.Context, profile string) (*domain.Session, error) {
	var (
		s                domain.Session
		expires, created int64
	)
	err := c.db.sql.QueryRowContext(ctx,
		c.db.rebind("SELECT session_id, user_id, provider, secret, expires_at, created_at FROM credentials WHERE profile = ?"),
		profile,
	).Scan(&s.ID, &s.UserID, &s.Provider, &s.Secret, &expires, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.ExpiresAt = fromUnix(expires)
	s.CreatedAt = fromUnix(created)
	return &s, nil
}

// Put replaces the credential of profile.
func (c *CredentialStore) Put(ctx context.Context, profile string, s *domain.Session) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := c.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, c.db.rebind("DELETE FROM credentials WHERE profile = ?"), profile); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		c.db.rebind("INSERT INTO credentials (profile, session_id, user_id, provider, secret, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		profile, s.ID, s.UserID, s.Provider, s.Secret, toUnix(s.ExpiresAt), toUnix(created),
	); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return tx.Commit()
}

// Delete forgets the credential of profile.
func (c *CredentialStore) Delete(ctx context.Context, profile string) error {
	_, err := c.db.sql.ExecContext(ctx, c.db.rebind("DELETE FROM credentials WHERE profile = ?"), profile)
	return err
}
