// Package app holds the page-level state machines and use cases.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"healthmate/internal/domain"
)

var (
	// ErrIdentityUnresolved indicates a load or submit before the current
	// user is known.
	ErrIdentityUnresolved = errors.New("current user not resolved")
	// ErrSuperseded indicates a load whose result was discarded because a
	// newer load was started after it.
	ErrSuperseded = errors.New("load superseded by a newer request")
)

// RecordAPI is the per-record-type capability the synchronizer drives.
type RecordAPI[R domain.Record, D domain.Draft[D]] interface {
	ListByDate(ctx context.Context, userID string, date domain.LogDate) ([]R, error)
	Create(ctx context.Context, draft D) (R, error)
}

// Phase is the page lifecycle position.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseReady
	PhaseRedirecting
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseRedirecting:
		return "redirecting"
	default:
		return "uninitialized"
	}
}

// SyncStatus is the state of the most recent load.
type SyncStatus int

const (
	StatusIdle SyncStatus = iota
	StatusLoading
	StatusError
)

func (s SyncStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// View is a snapshot of the date scoped records.
type View[R domain.Record] struct {
	Phase      Phase
	Status     SyncStatus
	Date       domain.LogDate
	UserID     string
	Records    []R
	Message    string
	Submitting bool
	Redirect   *Redirect
}

// SyncConfig tunes a Synchronizer. Zero values select the defaults: today's
// local date and DefaultRedirectDelay.
type SyncConfig struct {
	Date          domain.LogDate
	RedirectDelay time.Duration
}

// Synchronizer keeps the records of (current user, selected date) for one
// record type. It is created fresh for every page activation and is safe for
// concurrent use.
type Synchronizer[R domain.Record, D domain.Draft[D]] struct {
	api  RecordAPI[R, D]
	gate *identityGate

	mu         sync.Mutex
	phase      Phase
	status     SyncStatus
	date       domain.LogDate
	userID     string
	records    []R
	message    string
	submitting int
	redirect   *Redirect
	gen        uint64
}

// NewSynchronizer creates a page-scoped synchronizer.
func NewSynchronizer[R domain.Record, D domain.Draft[D]](identity IdentityResolver, api RecordAPI[R, D], cfg SyncConfig) *Synchronizer[R, D] {
	date := cfg.Date
	if date.IsZero() {
		date = domain.Today()
	}
	return &Synchronizer[R, D]{
		api:  api,
		gate: newIdentityGate(identity, cfg.RedirectDelay),
		date: date,
	}
}

// ResolveIdentity asks the identity provider for the current user. Only the
// first call queries the provider. On failure the page moves to the
// redirecting phase and a *RedirectError is returned.
func (s *Synchronizer[R, D]) ResolveIdentity(ctx context.Context) error {
	user, err := s.gate.resolve(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = PhaseRedirecting
		var re *RedirectError
		if errors.As(err, &re) {
			r := re.Redirect
			s.redirect = &r
			s.message = re.Notice
		}
		return err
	}
	if s.phase == PhaseUninitialized {
		s.phase = PhaseReady
		s.userID = user.ID
	}
	return nil
}

// Activate resolves identity and runs the load that a newly known user
// triggers.
func (s *Synchronizer[R, D]) Activate(ctx context.Context) error {
	if err := s.ResolveIdentity(ctx); err != nil {
		return err
	}
	return s.Load(ctx)
}

// SetDate selects a new date. When the user is known a change triggers
// exactly one load; selecting the current date again does nothing.
func (s *Synchronizer[R, D]) SetDate(ctx context.Context, date domain.LogDate) error {
	s.mu.Lock()
	if date == s.date {
		s.mu.Unlock()
		return nil
	}
	s.date = date
	ready := s.userID != ""
	s.mu.Unlock()

	if !ready {
		return nil
	}
	return s.Load(ctx)
}

// Load replaces the records with the server's list for the current user and
// date, exactly as returned. On failure the previous records are kept and the status becomes
// error. A load overtaken by a newer one returns ErrSuperseded and changes
// nothing.
func (s *Synchronizer[R, D]) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return ErrIdentityUnresolved
	}
	s.gen++
	gen, userID, date := s.gen, s.userID, s.date
	s.status = StatusLoading
	s.message = ""
	s.mu.Unlock()

	records, err := s.api.ListByDate(ctx, userID, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		slog.Debug("sync.load.stale", "date", date.String(), "gen", gen, "latest", s.gen)
		return ErrSuperseded
	}
	if err != nil {
		slog.Warn("sync.load.failed", "date", date.String(), "err", err)
		s.status = StatusError
		s.message = err.Error()
		return err
	}

	for _, r := range records {
		if r.OwnerID() != userID || r.Day() != date {
			slog.Debug("sync.load.mismatch", "id", r.RecordID(), "owner", r.OwnerID(), "date", r.Day().String())
		}
	}
	s.records = records
	s.status = StatusIdle
	return nil
}

// Submit creates a record for the current user and date. The record the
// server returns is prepended as is; no reload follows. If the selected date
// changed while the request was in flight the record is not inserted.
func (s *Synchronizer[R, D]) Submit(ctx context.Context, draft D) (R, error) {
	var zero R

	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return zero, ErrIdentityUnresolved
	}
	userID, date := s.userID, s.date
	s.submitting++
	s.message = ""
	s.mu.Unlock()

	created, err := s.api.Create(ctx, draft.Owned(userID, date))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting--
	if err != nil {
		slog.Warn("sync.submit.failed", "date", date.String(), "err", err)
		s.message = err.Error()
		return zero, err
	}
	slog.Info("sync.submit.ok", "id", created.RecordID(), "date", date.String())
	if s.userID == userID && s.date == date {
		s.records = append([]R{created}, s.records...)
	}
	return created, nil
}

// View returns a snapshot of the current state.
func (s *Synchronizer[R, D]) View() View[R] {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]R, len(s.records))
	copy(records, s.records)
	return View[R]{
		Phase:      s.phase,
		Status:     s.status,
		Date:       s.date,
		UserID:     s.userID,
		Records:    records,
		Message:    s.message,
		Submitting: s.submitting > 0,
		Redirect:   s.redirect,
	}
}
