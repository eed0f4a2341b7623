package repository

import (
	"context"
	"sync"

	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/submission/domain"
)

// MemoryRepository keeps one ledger per session. The (session, identity) slot is claimed with
// LoadOrStore, so appends for different identities never wait on each other for the claim; only
// the ordered append of an accepted record takes the ledger's lock.
type MemoryRepository struct {
	ledgers sync.Map // session id -> *ledger
}

type ledger struct {
	claims sync.Map // identity -> struct{}

	mu     sync.Mutex
	order  []*domain.Record
	closed bool
}

// NewMemoryRepository returns an empty in-memory submission repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) ledger(sessionID string) *ledger {
	if l, ok := r.ledgers.Load(sessionID); ok {
		return l.(*ledger)
	}
	l, _ := r.ledgers.LoadOrStore(sessionID, &ledger{})
	return l.(*ledger)
}

// Append stores rec unless its identity already holds the session slot. A session whose records
// were deleted stays closed: later appends fail with ErrSessionNotFound.
func (r *MemoryRepository) Append(ctx context.Context, rec *domain.Record) error {
	l := r.ledger(rec.SessionID)
	if _, loaded := l.claims.LoadOrStore(rec.Identity, struct{}{}); loaded {
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return apperr.ErrSessionNotFound
		}
		return apperr.ErrDuplicateSubmission
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return apperr.ErrSessionNotFound
	}
	stored := *rec
	stored.Seq = int64(len(l.order) + 1)
	l.order = append(l.order, &stored)
	rec.Seq = stored.Seq
	return nil
}

// ListBySession returns the session's records in the order they were accepted.
func (r *MemoryRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	v, ok := r.ledgers.Load(sessionID)
	if !ok {
		return nil, nil
	}
	l := v.(*ledger)
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*domain.Record, 0, len(l.order))
	for _, rec := range l.order {
		c := *rec
		out = append(out, &c)
	}
	return out, nil
}

// CountBySessions returns the number of records per session.
func (r *MemoryRepository) CountBySessions(ctx context.Context, sessionIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(sessionIDs))
	for _, id := range sessionIDs {
		v, ok := r.ledgers.Load(id)
		if !ok {
			continue
		}
		l := v.(*ledger)
		l.mu.Lock()
		n := len(l.order)
		l.mu.Unlock()
		if n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

// DeleteBySessions drops the records of the given sessions and closes their ledgers, so a submit
// that passed its session check before the delete cannot land afterwards.
func (r *MemoryRepository) DeleteBySessions(ctx context.Context, sessionIDs []string) error {
	for _, id := range sessionIDs {
		l := r.ledger(id)
		l.mu.Lock()
		l.closed = true
		l.order = nil
		l.mu.Unlock()
	}
	return nil
}
