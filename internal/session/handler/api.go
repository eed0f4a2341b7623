// Package handler exposes the session lifecycle to transports. API holds the authorization and
// request/response shapes; grpc.go registers it as attendance.session.v1.SessionService and the HTTP
// layer calls the same methods.
package handler

import (
	"context"
	"errors"
	"time"

	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/policy/engine"
	"attendance-ledger/backend/internal/security"
	"attendance-ledger/backend/internal/session/domain"
	"attendance-ledger/backend/internal/session/service"
)

// CreateRequest is the CreateSession payload.
type CreateRequest struct {
	Name string `json:"name" validate:"notblank,max=200"`
}

// SessionIDRequest targets one session.
type SessionIDRequest struct {
	SessionID string `json:"session_id" validate:"notblank"`
}

// DeleteRequest lists sessions to delete.
type DeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,notblank"`
}

// SessionView is the client representation of a session. ExpiresAt is advisory; the server decides.
type SessionView struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Code            string     `json:"code"`
	OwnerID         string     `json:"owner_id"`
	State           string     `json:"state"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	StoppedAt       *time.Time `json:"stopped_at,omitempty"`
	SubmissionCount int        `json:"submission_count"`
}

// ListResponse is the ListSessions result, newest first.
type ListResponse struct {
	Sessions []SessionView `json:"sessions"`
}

// DeleteResponse reports how many sessions were removed.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// API serves session operations for an authenticated caller.
type API struct {
	sessions *service.Service
	authz    engine.Authorizer
}

// NewAPI returns an API over sessions, checking every call against authz.
func NewAPI(sessions *service.Service, authz engine.Authorizer) *API {
	return &API{sessions: sessions, authz: authz}
}

func (a *API) view(s *domain.Session, count int) SessionView {
	return SessionView{
		ID:              s.ID,
		Name:            s.Name,
		Code:            s.Code,
		OwnerID:         s.OwnerID,
		State:           string(s.State),
		Active:          a.sessions.IsAccepting(s, a.sessions.Now()),
		CreatedAt:       s.CreatedAt,
		ExpiresAt:       s.ExpiresAt(a.sessions.Duration()),
		StoppedAt:       s.StoppedAt,
		SubmissionCount: count,
	}
}

// Create starts a session owned by the caller.
func (a *API) Create(ctx context.Context, req CreateRequest) (*SessionView, error) {
	caller, err := rbac.Require(ctx, a.authz, engine.ActionCreateSession, "")
	if err != nil {
		return nil, err
	}
	s, err := a.sessions.Create(ctx, req.Name, caller.ID)
	if err != nil {
		return nil, err
	}
	v := a.view(s, 0)
	return &v, nil
}

// owned loads the session and checks action against its owner.
func (a *API) owned(ctx context.Context, action, id string) (*domain.Session, error) {
	if _, err := rbac.RequireCaller(ctx); err != nil {
		return nil, err
	}
	s, err := a.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := rbac.Require(ctx, a.authz, action, s.OwnerID); err != nil {
		return nil, err
	}
	return s, nil
}

// Stop ends a session the caller owns. Stopping a terminal session returns it unchanged.
func (a *API) Stop(ctx context.Context, req SessionIDRequest) (*SessionView, error) {
	if _, err := a.owned(ctx, engine.ActionStopSession, req.SessionID); err != nil {
		return nil, err
	}
	s, err := a.sessions.Stop(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	v := a.view(s, 0)
	return &v, nil
}

// List returns the caller's sessions within retention; administrators see every owner's sessions.
func (a *API) List(ctx context.Context) (*ListResponse, error) {
	caller, err := rbac.Require(ctx, a.authz, engine.ActionListSessions, "")
	if err != nil {
		return nil, err
	}
	owner := caller.ID
	if caller.Role == security.RoleAdmin {
		owner = ""
	}
	list, err := a.sessions.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := &ListResponse{Sessions: make([]SessionView, 0, len(list))}
	for _, sum := range list {
		out.Sessions = append(out.Sessions, a.view(sum.Session, sum.SubmissionCount))
	}
	return out, nil
}

// Delete removes the listed sessions with their submissions. Every existing target must be owned
// by the caller; unknown ids are ignored.
func (a *API) Delete(ctx context.Context, req DeleteRequest) (*DeleteResponse, error) {
	caller, err := rbac.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range req.IDs {
		if _, err := a.owned(ctx, engine.ActionDeleteSessions, id); err != nil {
			if errors.Is(err, apperr.ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
	}
	n, err := a.sessions.DeleteMany(ctx, caller.ID, req.IDs)
	if err != nil {
		return nil, err
	}
	return &DeleteResponse{Deleted: n}, nil
}

// ClearAll removes every session of the caller; administrators clear all sessions.
func (a *API) ClearAll(ctx context.Context) (*DeleteResponse, error) {
	caller, err := rbac.Require(ctx, a.authz, engine.ActionClearAll, "")
	if err != nil {
		return nil, err
	}
	owner := caller.ID
	if caller.Role == security.RoleAdmin {
		owner = ""
	}
	n, err := a.sessions.ClearAll(ctx, caller.ID, owner)
	if err != nil {
		return nil, err
	}
	return &DeleteResponse{Deleted: n}, nil
}
