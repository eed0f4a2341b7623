package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"attendance-ledger/backend/internal/session/domain"
)

// MemoryRepository keeps sessions in process memory. The index lock only guards map structure;
// terminal claims lock the single session entry.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*memEntry
	byCode map[string]string
}

type memEntry struct {
	mu sync.Mutex
	s  *domain.Session
}

func (e *memEntry) snapshot() *domain.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone()
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*memEntry),
		byCode: make(map[string]string),
	}
}

// Create stores s. Returns ErrCodeTaken when s.Code is already used.
func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[s.Code]; ok {
		return ErrCodeTaken
	}
	r.byID[s.ID] = &memEntry{s: s.Clone()}
	r.byCode[s.Code] = s.ID
	return nil
}

func (r *MemoryRepository) entry(id string) *memEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// GetByID returns the session for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	e := r.entry(id)
	if e == nil {
		return nil, nil
	}
	return e.snapshot(), nil
}

// GetByCode returns the session using code, or nil if not found.
func (r *MemoryRepository) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	r.mu.RLock()
	id, ok := r.byCode[code]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) entries() []*memEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*memEntry, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	return out
}

// ListByOwner returns the owner's sessions created at or after createdFrom, newest first.
func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string, createdFrom time.Time) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, e := range r.entries() {
		s := e.snapshot()
		if ownerID != "" && s.OwnerID != ownerID {
			continue
		}
		if s.CreatedAt.Before(createdFrom) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListActive returns every active session.
func (r *MemoryRepository) ListActive(ctx context.Context) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, e := range r.entries() {
		if s := e.snapshot(); s.State == domain.StateActive {
			out = append(out, s)
		}
	}
	return out, nil
}

// ClaimTerminal performs the compare-and-set from active to state under the session's own lock.
func (r *MemoryRepository) ClaimTerminal(ctx context.Context, id string, state domain.State, at time.Time) (bool, *domain.Session, error) {
	e := r.entry(id)
	if e == nil {
		return false, nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.State != domain.StateActive {
		return false, e.s.Clone(), nil
	}
	stoppedAt := at
	e.s.State = state
	e.s.StoppedAt = &stoppedAt
	return true, e.s.Clone(), nil
}

// DeleteMany removes the given sessions; missing ids are ignored.
func (r *MemoryRepository) DeleteMany(ctx context.Context, ids []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted []string
	for _, id := range ids {
		if r.deleteLocked(id) {
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// DeleteByOwner removes the owner's sessions, or every session when ownerID is empty.
func (r *MemoryRepository) DeleteByOwner(ctx context.Context, ownerID string) ([]string, error) {
	return r.deleteWhere(func(s *domain.Session) bool {
		return ownerID == "" || s.OwnerID == ownerID
	}), nil
}

// DeleteCreatedBefore removes sessions created before cutoff.
func (r *MemoryRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	return r.deleteWhere(func(s *domain.Session) bool {
		return s.CreatedAt.Before(cutoff)
	}), nil
}

func (r *MemoryRepository) deleteWhere(match func(*domain.Session) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted []string
	for id, e := range r.byID {
		if match(e.snapshot()) && r.deleteLocked(id) {
			deleted = append(deleted, id)
		}
	}
	return deleted
}

// deleteLocked requires r.mu held for writing.
func (r *MemoryRepository) deleteLocked(id string) bool {
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	e.mu.Lock()
	code := e.s.Code
	e.mu.Unlock()
	if r.byCode[code] == id {
		delete(r.byCode, code)
	}
	return true
}
