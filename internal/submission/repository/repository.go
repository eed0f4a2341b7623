package repository

import (
	"context"

	"attendance-ledger/backend/internal/submission/domain"
)

// Repository persists submission records. Append is the only write on the submit path and must be
// atomic per (session, identity).
type Repository interface {
	// Append stores r unless the identity already submitted to the session, in which case it returns
	// apperr.ErrDuplicateSubmission. r.Seq is set on success.
	Append(ctx context.Context, r *domain.Record) error
	// ListBySession returns the session's records in insertion order.
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Record, error)
	// CountBySessions returns record counts keyed by session id; sessions without records are absent.
	CountBySessions(ctx context.Context, sessionIDs []string) (map[string]int, error)
	// DeleteBySessions removes every record of the given sessions.
	DeleteBySessions(ctx context.Context, sessionIDs []string) error
}
