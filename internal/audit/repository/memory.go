package repository

import (
	"context"
	"sync"

	"attendance-ledger/backend/internal/audit/domain"
)

// MemoryRepository keeps audit logs in process memory, newest last.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create appends a copy of a.
func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	entry := *a
	r.mu.Lock()
	r.entries = append(r.entries, &entry)
	r.mu.Unlock()
	return nil
}

// ListByActor returns the actor's entries newest first. An empty actorID lists everything.
func (r *MemoryRepository) ListByActor(ctx context.Context, actorID string, limit, offset int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	skipped := int32(0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if actorID != "" && e.ActorID != actorID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && int32(len(out)) >= limit {
			break
		}
		entry := *e
		out = append(out, &entry)
	}
	return out, nil
}
