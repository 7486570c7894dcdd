package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"healthmate/internal/domain"
)

var _ domain.AccountRepository = (*DB)(nil)

// GetByEmail retrieves an account by email, ignoring case.
func (d *DB) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return d.getAccount(ctx, "SELECT id, email, name, password_hash, created_at FROM users WHERE LOWER(email) = LOWER(?)", email)
}

// GetByID retrieves an account by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return d.getAccount(ctx, "SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?", id)
}

func (d *DB) getAccount(ctx context.Context, query string, arg string) (*domain.Account, error) {
	var (
		a       domain.Account
		created int64
	)
	err := d.sql.QueryRowContext(ctx, d.rebind(query), arg).
		Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = fromUnix(created)
	return &a, nil
}

// Create stores a new account. The email must be unused.
func (d *DB) Create(ctx context.Context, a *domain.Account) error {
	existing, err := d.GetByEmail(ctx, a.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrEmailTaken
	}

	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = d.sql.ExecContext(ctx,
		d.rebind("INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)"),
		a.ID, a.Email, a.Name, a.PasswordHash, toUnix(created),
	)
	return err
}

// SessionRepo implements issued session persistence on DB.
type SessionRepo struct {
	db *DB
}

var _ domain.IssuedSessionRepository = (*SessionRepo)(nil)

// NewSessionRepo wraps a DB as an IssuedSessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create records an issued session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.IssuedSession) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.sql.ExecContext(ctx,
		r.db.rebind("INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)"),
		s.ID, s.UserID, toUnix(s.ExpiresAt), toUnix(created),
	)
	return err
}

// Get retrieves an issued session, or nil when it does not exist or has
// expired.
func (r *SessionRepo) Get(ctx context.Context, id string) (*domain.IssuedSession, error) {
	var (
		s                domain.IssuedSession
		expires, created int64
	)
	err := r.db.sql.QueryRowContext(ctx,
		r.db.rebind("SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?"),
		id,
	).Scan(&s.ID, &s.UserID, &expires, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.ExpiresAt = fromUnix(expires)
	s.CreatedAt = fromUnix(created)
	if time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return &s, nil
}

// DeleteByUser deletes every session issued to userID.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.sql.ExecContext(ctx, r.db.rebind("DELETE FROM sessions WHERE user_id = ?"), userID)
	return err
}

// DeleteExpired deletes all sessions expired at now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.sql.ExecContext(ctx, r.db.rebind("DELETE FROM sessions WHERE expires_at < ?"), now.Unix())
	return err
}
