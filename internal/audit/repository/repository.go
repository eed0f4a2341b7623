package repository

import (
	"context"

	"attendance-ledger/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListByActor(ctx context.Context, actorID string, limit, offset int32) ([]*domain.AuditLog, error)
}
