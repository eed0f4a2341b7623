// Package handler exposes the submission ledger as attendance.submission.v1.SubmissionService and
// to the HTTP layer.
package handler

import (
	"context"
	"time"

	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/policy/engine"
	sessiondomain "attendance-ledger/backend/internal/session/domain"
	"attendance-ledger/backend/internal/submission/service"
)

// SubmitRequest is the Submit payload. The submitting identity is the authenticated caller.
type SubmitRequest struct {
	Code              string `json:"code" validate:"required_without=SessionID,max=32"`
	SessionID         string `json:"session_id" validate:"max=64"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"notblank,max=512"`
}

// SubmitResponse confirms an accepted submission.
type SubmitResponse struct {
	Accepted    bool      `json:"accepted"`
	SessionID   string    `json:"session_id"`
	SecondaryID string    `json:"secondary_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ListRequest is the GetSubmissions payload.
type ListRequest struct {
	SessionID string `json:"session_id" validate:"notblank"`
}

// RecordView is one submission as shown to the session owner.
type RecordView struct {
	Identity    string    `json:"identity"`
	SecondaryID string    `json:"secondary_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ListResponse holds a session's submissions in insertion order.
type ListResponse struct {
	SessionID   string       `json:"session_id"`
	Submissions []RecordView `json:"submissions"`
}

// SessionGetter loads a session within retention.
type SessionGetter interface {
	Get(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// API serves submission operations for an authenticated caller.
type API struct {
	ledger   *service.Ledger
	sessions SessionGetter
	authz    engine.Authorizer
}

// NewAPI returns an API over ledger. sessions is used to find the owner for GetSubmissions.
func NewAPI(ledger *service.Ledger, sessions SessionGetter, authz engine.Authorizer) *API {
	return &API{ledger: ledger, sessions: sessions, authz: authz}
}

// Submit records the caller's attendance.
func (a *API) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	caller, err := rbac.Require(ctx, a.authz, engine.ActionSubmit, "")
	if err != nil {
		return nil, err
	}
	rec, err := a.ledger.Submit(ctx, service.SubmitInput{
		SessionID:         req.SessionID,
		Code:              req.Code,
		Identity:          caller.ID,
		DeviceFingerprint: req.DeviceFingerprint,
	})
	if err != nil {
		return nil, err
	}
	return &SubmitResponse{
		Accepted:    true,
		SessionID:   rec.SessionID,
		SecondaryID: rec.SecondaryID,
		SubmittedAt: rec.SubmittedAt,
	}, nil
}

// List returns the submissions of a session the caller owns.
func (a *API) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	if _, err := rbac.RequireCaller(ctx); err != nil {
		return nil, err
	}
	sess, err := a.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := rbac.Require(ctx, a.authz, engine.ActionGetSubmissions, sess.OwnerID); err != nil {
		return nil, err
	}
	records, err := a.ledger.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	out := &ListResponse{SessionID: sess.ID, Submissions: make([]RecordView, 0, len(records))}
	for _, r := range records {
		out.Submissions = append(out.Submissions, RecordView{Identity: r.Identity, SecondaryID: r.SecondaryID, SubmittedAt: r.SubmittedAt})
	}
	return out, nil
}
