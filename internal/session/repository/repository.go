package repository

import (
	"context"
	"errors"
	"time"

	"attendance-ledger/backend/internal/session/domain"
)

// ErrCodeTaken is returned by Create when another non-purged session already uses the access code.
var ErrCodeTaken = errors.New("access code already in use")

// Repository defines persistence for sessions. Getters return (nil, nil) when the session is absent.
// Driver failures are wrapped with apperr.Unavailable.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByCode(ctx context.Context, code string) (*domain.Session, error)
	// ListByOwner returns the owner's sessions created at or after createdFrom, newest first.
	// An empty ownerID lists every owner's sessions.
	ListByOwner(ctx context.Context, ownerID string, createdFrom time.Time) ([]*domain.Session, error)
	// ListActive returns every session still in StateActive.
	ListActive(ctx context.Context) ([]*domain.Session, error)
	// ClaimTerminal moves an active session to state at time at. Exactly one caller wins; claimed is
	// false for everyone else and current holds the session as it is now. current is nil when absent.
	ClaimTerminal(ctx context.Context, id string, state domain.State, at time.Time) (claimed bool, current *domain.Session, err error)
	// DeleteMany removes the given sessions and returns the ids that existed.
	DeleteMany(ctx context.Context, ids []string) ([]string, error)
	// DeleteByOwner removes every session of ownerID, or all sessions when ownerID is empty.
	DeleteByOwner(ctx context.Context, ownerID string) ([]string, error)
	// DeleteCreatedBefore removes sessions created before cutoff, whatever their state.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
