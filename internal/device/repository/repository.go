package repository

import (
	"context"

	"attendance-ledger/backend/internal/device/domain"
)

// Repository defines persistence for device bindings. Bindings are never updated.
type Repository interface {
	// GetByIdentity returns the binding for identity, or nil if the identity is unbound.
	GetByIdentity(ctx context.Context, identity string) (*domain.Binding, error)
	// BindIfAbsent atomically records b unless the identity already has a binding. It returns the
	// binding in force afterwards and whether b was the one recorded.
	BindIfAbsent(ctx context.Context, b *domain.Binding) (current *domain.Binding, created bool, err error)
}
