// Package service implements the submission ledger: the submit path that checks the session window,
// authorizes the device, resolves the secondary identifier and records at most one submission per
// identity and session.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	devicedomain "attendance-ledger/backend/internal/device/domain"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/platform/identity"
	"attendance-ledger/backend/internal/security"
	sessiondomain "attendance-ledger/backend/internal/session/domain"
	"attendance-ledger/backend/internal/submission/domain"
	"attendance-ledger/backend/internal/submission/repository"
	"attendance-ledger/backend/internal/telemetry"
	telemetrydomain "attendance-ledger/backend/internal/telemetry/domain"
	"attendance-ledger/backend/internal/telemetry/metrics"
)

// Sessions is the session lifecycle the ledger reads. Get and GetByCode apply retention.
type Sessions interface {
	Get(ctx context.Context, id string) (*sessiondomain.Session, error)
	GetByCode(ctx context.Context, code string) (*sessiondomain.Session, error)
	CheckAccepting(ctx context.Context, sess *sessiondomain.Session) error
}

// DeviceAuthorizer decides whether a device may submit for an identity.
type DeviceAuthorizer interface {
	Authorize(ctx context.Context, identity, fingerprint string) (devicedomain.Outcome, error)
}

// IdentifierResolver maps an identity to its secondary identifier, or fallback.
type IdentifierResolver interface {
	ResolveOrDefault(ctx context.Context, identity, fallback string) string
}

// SubmitInput identifies the session by id or by access code. Identity is the authenticated caller.
type SubmitInput struct {
	SessionID         string
	Code              string
	Identity          string
	DeviceFingerprint string
}

// Ledger records attendance submissions.
type Ledger struct {
	repo        repository.Repository
	sessions    Sessions
	devices     DeviceAuthorizer
	identifiers IdentifierResolver
	hasher      *security.FingerprintHasher
	clock       clock.Clock
	events      telemetry.EventEmitter
	metrics     *metrics.Recorder
}

// NewLedger returns a Ledger. identifiers, events and rec may be nil.
func NewLedger(repo repository.Repository, sessions Sessions, devices DeviceAuthorizer, identifiers IdentifierResolver,
	hasher *security.FingerprintHasher, clk clock.Clock, events telemetry.EventEmitter, rec *metrics.Recorder) *Ledger {
	if hasher == nil {
		hasher = security.NewFingerprintHasher("")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Ledger{
		repo:        repo,
		sessions:    sessions,
		devices:     devices,
		identifiers: identifiers,
		hasher:      hasher,
		clock:       clk,
		events:      events,
		metrics:     rec,
	}
}

// Submit records one submission. The session must be accepting, the device must match the identity's
// binding (or bind now), and the identity must not have submitted to the session before.
func (l *Ledger) Submit(ctx context.Context, in SubmitInput) (*domain.Record, error) {
	rec, sessionID, err := l.submit(ctx, in)
	l.observe(ctx, sessionID, identity.Normalize(in.Identity), err)
	return rec, err
}

// SubmitByCode submits to the session identified by its access code.
func (l *Ledger) SubmitByCode(ctx context.Context, code, id, fingerprint string) (*domain.Record, error) {
	return l.Submit(ctx, SubmitInput{Code: code, Identity: id, DeviceFingerprint: fingerprint})
}

func (l *Ledger) submit(ctx context.Context, in SubmitInput) (*domain.Record, string, error) {
	id := identity.Normalize(in.Identity)
	fingerprint := strings.TrimSpace(in.DeviceFingerprint)
	if id == "" {
		return nil, "", apperr.Invalid("identity is required")
	}
	if fingerprint == "" {
		return nil, "", apperr.Invalid("device fingerprint is required")
	}

	sess, err := l.resolveSession(ctx, in)
	if err != nil {
		return nil, "", err
	}
	if err := l.sessions.CheckAccepting(ctx, sess); err != nil {
		return nil, sess.ID, err
	}

	outcome, err := l.devices.Authorize(ctx, id, fingerprint)
	if err != nil {
		return nil, sess.ID, err
	}
	if !outcome.Authorized() {
		return nil, sess.ID, apperr.ErrDeviceMismatch
	}

	secondary := domain.SecondaryIDNotFound
	if l.identifiers != nil {
		secondary = l.identifiers.ResolveOrDefault(ctx, id, domain.SecondaryIDNotFound)
	}

	rec := &domain.Record{
		ID:              uuid.NewString(),
		SessionID:       sess.ID,
		Identity:        id,
		SecondaryID:     secondary,
		FingerprintHash: l.hasher.Hash(fingerprint),
		SubmittedAt:     l.clock.Now().Truncate(time.Microsecond),
	}
	if err := l.repo.Append(ctx, rec); err != nil {
		return nil, sess.ID, err
	}
	return rec, sess.ID, nil
}

func (l *Ledger) resolveSession(ctx context.Context, in SubmitInput) (*sessiondomain.Session, error) {
	switch {
	case strings.TrimSpace(in.SessionID) != "":
		return l.sessions.Get(ctx, strings.TrimSpace(in.SessionID))
	case strings.TrimSpace(in.Code) != "":
		return l.sessions.GetByCode(ctx, in.Code)
	default:
		return nil, apperr.Invalid("session id or access code is required")
	}
}

func (l *Ledger) observe(ctx context.Context, sessionID, id string, err error) {
	if err == nil {
		l.metrics.Submission(ctx, "accepted")
		telemetry.EmitAsync(l.events, telemetry.NewEvent(telemetrydomain.EventSubmissionAccepted, "submission", sessionID, id, l.clock.Now(), nil))
		return
	}
	reason := strings.ToLower(apperr.Reason(err))
	l.metrics.Submission(ctx, reason)
	if errors.Is(err, apperr.ErrInvalidInput) {
		return
	}
	telemetry.EmitAsync(l.events, telemetry.NewEvent(telemetrydomain.EventSubmissionRejected, "submission", sessionID, id, l.clock.Now(),
		map[string]string{"reason": apperr.Reason(err)}))
}

// ListBySession returns the session's submissions in insertion order. Sessions outside the retention
// window are not found.
func (l *Ledger) ListBySession(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	sess, err := l.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return l.repo.ListBySession(ctx, sess.ID)
}
