package repository

import (
	"context"
	"sync"

	"attendance-ledger/backend/internal/device/domain"
)

// MemoryRepository keeps bindings in a sync.Map; first writer per identity wins without a global lock.
type MemoryRepository struct {
	bindings sync.Map // identity -> *domain.Binding
}

// NewMemoryRepository returns an empty in-memory binding repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// GetByIdentity returns the binding for identity, or nil if not found.
func (r *MemoryRepository) GetByIdentity(ctx context.Context, identity string) (*domain.Binding, error) {
	v, ok := r.bindings.Load(identity)
	if !ok {
		return nil, nil
	}
	b := *v.(*domain.Binding)
	return &b, nil
}

// BindIfAbsent stores b unless identity is already bound.
func (r *MemoryRepository) BindIfAbsent(ctx context.Context, b *domain.Binding) (*domain.Binding, bool, error) {
	stored := *b
	v, loaded := r.bindings.LoadOrStore(b.Identity, &stored)
	current := *v.(*domain.Binding)
	return &current, !loaded, nil
}
