// Package service implements the session lifecycle: creation with unique access codes, the single
// terminal-transition claim shared by manual stop and automatic expiry, and retention-filtered reads.
package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"attendance-ledger/backend/internal/history"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/session/domain"
	"attendance-ledger/backend/internal/session/repository"
	"attendance-ledger/backend/internal/telemetry"
	telemetrydomain "attendance-ledger/backend/internal/telemetry/domain"
	"attendance-ledger/backend/internal/telemetry/metrics"
)

const (
	// DefaultDuration is the fixed session length when none is configured.
	DefaultDuration = 10 * time.Minute
	// MaxNameLength is the longest accepted session name, in runes.
	MaxNameLength = 200
)

// SubmissionStore is the slice of the submission repository the session lifecycle needs.
type SubmissionStore interface {
	CountBySessions(ctx context.Context, sessionIDs []string) (map[string]int, error)
	DeleteBySessions(ctx context.Context, sessionIDs []string) error
}

// Scheduler arms the automatic expiry of a new session.
type Scheduler interface {
	Arm(sessionID string, createdAt time.Time)
}

// Config holds the lifecycle constants.
type Config struct {
	Duration   time.Duration
	CodeLength int
}

// Service owns sessions and their lifecycle state.
type Service struct {
	repo        repository.Repository
	submissions SubmissionStore
	policy      history.Policy
	clock       clock.Clock
	duration    time.Duration
	codeLength  int
	scheduler   Scheduler
	events      telemetry.EventEmitter
	metrics     *metrics.Recorder
}

// NewService returns a session Service. events and rec may be nil. The expiry scheduler is attached
// with SetScheduler once it has been built around this service.
func NewService(repo repository.Repository, submissions SubmissionStore, policy history.Policy, clk clock.Clock, cfg Config, events telemetry.EventEmitter, rec *metrics.Recorder) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	return &Service{
		repo:        repo,
		submissions: submissions,
		policy:      policy,
		clock:       clk,
		duration:    cfg.Duration,
		codeLength:  cfg.CodeLength,
		events:      events,
		metrics:     rec,
	}
}

// SetScheduler attaches the expiry scheduler armed by Create.
func (s *Service) SetScheduler(sch Scheduler) {
	s.scheduler = sch
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// Duration returns the fixed session duration.
func (s *Service) Duration() time.Duration {
	return s.duration
}

// Create registers a new active session owned by ownerID and arms its expiry.
func (s *Service) Create(ctx context.Context, name, ownerID string) (*domain.Session, error) {
	name = strings.TrimSpace(name)
	ownerID = strings.TrimSpace(ownerID)
	if name == "" {
		return nil, apperr.Invalid("session name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, apperr.Invalid("session name is too long")
	}
	if ownerID == "" {
		return nil, apperr.Invalid("owner is required")
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode(s.codeLength)
		if err != nil {
			return nil, err
		}
		sess := &domain.Session{
			ID:        uuid.NewString(),
			Name:      name,
			Code:      code,
			OwnerID:   ownerID,
			CreatedAt: s.clock.Now().Truncate(time.Microsecond),
			State:     domain.StateActive,
		}
		err = s.repo.Create(ctx, sess)
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.metrics.SessionCreated(ctx)
		telemetry.EmitAsync(s.events, telemetry.NewEvent(telemetrydomain.EventSessionCreated, "session", sess.ID, ownerID, sess.CreatedAt,
			map[string]string{"name": name}))
		if s.scheduler != nil {
			s.scheduler.Arm(sess.ID, sess.CreatedAt)
		}
		return sess, nil
	}
	log.Printf("session: no free access code after %d attempts", maxCodeAttempts)
	return nil, apperr.Unavailable(errors.New("access code space exhausted"))
}

// Stop claims the terminal transition with cause stopped. Already-terminal sessions are returned
// unchanged. A session already past its deadline is recorded as expired at the deadline.
func (s *Service) Stop(ctx context.Context, id string) (*domain.Session, error) {
	return s.claim(ctx, id, domain.StateStopped)
}

// Expire claims the terminal transition with cause expired. Losing to a manual stop is not an error.
func (s *Service) Expire(ctx context.Context, id string) (*domain.Session, error) {
	return s.claim(ctx, id, domain.StateExpired)
}

func (s *Service) claim(ctx context.Context, id string, state domain.State) (*domain.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State != domain.StateActive {
		return sess, nil
	}
	at := s.clock.Now().Truncate(time.Microsecond)
	if deadline := sess.ExpiresAt(s.duration); !at.Before(deadline) {
		state, at = domain.StateExpired, deadline
	}
	claimed, current, err := s.repo.ClaimTerminal(ctx, sess.ID, state, at)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.ErrSessionNotFound
	}
	if !claimed {
		return current, nil
	}
	s.metrics.SessionTerminal(ctx, string(state))
	eventType := telemetrydomain.EventSessionStopped
	if state == domain.StateExpired {
		eventType = telemetrydomain.EventSessionExpired
	}
	telemetry.EmitAsync(s.events, telemetry.NewEvent(eventType, "session", current.ID, current.OwnerID, at, nil))
	return current, nil
}

// Get returns the session for id. Sessions outside the retention window are not found.
func (s *Service) Get(ctx context.Context, id string) (*domain.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Invalid("session id is required")
	}
	sess, err := s.repo.GetByID(ctx, id)
	return s.visible(sess, err)
}

// GetByCode returns the session using the access code.
func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperr.Invalid("access code is required")
	}
	sess, err := s.repo.GetByCode(ctx, code)
	return s.visible(sess, err)
}

func (s *Service) visible(sess *domain.Session, err error) (*domain.Session, error) {
	if err != nil {
		return nil, err
	}
	if sess == nil || !s.policy.Visible(sess.CreatedAt, s.clock.Now()) {
		return nil, apperr.ErrSessionNotFound
	}
	return sess, nil
}

// ListByOwner returns the owner's sessions inside the retention window, newest first, with their
// submission counts. An empty ownerID lists every owner's sessions.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Summary, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID, s.policy.Cutoff(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list))
	for i, sess := range list {
		ids[i] = sess.ID
	}
	counts := map[string]int{}
	if s.submissions != nil && len(ids) > 0 {
		if counts, err = s.submissions.CountBySessions(ctx, ids); err != nil {
			return nil, err
		}
	}
	out := make([]*domain.Summary, len(list))
	for i, sess := range list {
		out[i] = &domain.Summary{Session: sess, SubmissionCount: counts[sess.ID]}
	}
	return out, nil
}

// ActiveSessions returns every session still active, for expiry recovery after a restart.
func (s *Service) ActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	return s.repo.ListActive(ctx)
}

// DeleteMany removes the given sessions and their submissions. Missing ids are ignored.
func (s *Service) DeleteMany(ctx context.Context, actorID string, ids []string) (int, error) {
	seen := make(map[string]bool, len(ids))
	var unique []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return 0, nil
	}
	deleted, err := s.repo.DeleteMany(ctx, unique)
	if err != nil {
		return 0, err
	}
	return s.afterDelete(ctx, actorID, deleted)
}

// ClearAll removes every session of ownerID and their submissions. An empty ownerID clears all
// sessions; only administrative callers may pass it.
func (s *Service) ClearAll(ctx context.Context, actorID, ownerID string) (int, error) {
	deleted, err := s.repo.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return s.afterDelete(ctx, actorID, deleted)
}

func (s *Service) afterDelete(ctx context.Context, actorID string, deleted []string) (int, error) {
	if len(deleted) == 0 {
		return 0, nil
	}
	if s.submissions != nil {
		if err := s.submissions.DeleteBySessions(ctx, deleted); err != nil {
			return len(deleted), err
		}
	}
	telemetry.EmitAsync(s.events, telemetry.NewEvent(telemetrydomain.EventSessionsDeleted, "session", "", actorID, s.clock.Now(),
		map[string]string{"count": strconv.Itoa(len(deleted))}))
	return len(deleted), nil
}

// IsAccepting reports whether sess accepts submissions at now: it must be active and younger than
// the fixed duration.
func (s *Service) IsAccepting(sess *domain.Session, now time.Time) bool {
	return sess != nil && sess.State == domain.StateActive && now.Before(sess.ExpiresAt(s.duration))
}

// CheckAccepting returns ErrSessionExpired unless sess is accepting now. An active session past its
// deadline (late or lost timer) is claimed as expired on the spot.
func (s *Service) CheckAccepting(ctx context.Context, sess *domain.Session) error {
	if s.IsAccepting(sess, s.clock.Now()) {
		return nil
	}
	if sess != nil && sess.State == domain.StateActive {
		if _, err := s.Expire(ctx, sess.ID); err != nil && !errors.Is(err, apperr.ErrSessionNotFound) {
			log.Printf("session: lazy expiry of %s failed: %v", sess.ID, err)
		}
	}
	return apperr.ErrSessionExpired
}
