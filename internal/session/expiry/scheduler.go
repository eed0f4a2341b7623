// Package expiry arms one deferred expiry per active session. A fired timer races manual stop
// through the same terminal claim, so timers are never cancelled.
package expiry

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/session/domain"
)

const (
	// fireTimeout bounds a single expiry claim.
	fireTimeout = 10 * time.Second
	// retryDelay is the wait before retrying a claim that failed with a store error.
	retryDelay = 5 * time.Second
	maxRetries = 3
)

// Target is the session lifecycle the scheduler drives.
type Target interface {
	Expire(ctx context.Context, id string) (*domain.Session, error)
	ActiveSessions(ctx context.Context) ([]*domain.Session, error)
}

// Scheduler fires Expire at createdAt + duration for every armed session.
type Scheduler struct {
	clock    clock.Clock
	duration time.Duration
	target   Target

	mu      sync.Mutex
	closed  bool
	pending int
	wg      sync.WaitGroup
}

// NewScheduler returns a Scheduler expiring sessions duration after creation.
func NewScheduler(clk clock.Clock, duration time.Duration, target Target) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{clock: clk, duration: duration, target: target}
}

// Arm schedules the expiry of sessionID. A deadline already in the past fires immediately.
func (s *Scheduler) Arm(sessionID string, createdAt time.Time) {
	delay := createdAt.Add(s.duration).Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
	s.clock.AfterFunc(delay, func() { s.fire(sessionID, 0) })
}

// Pending returns the number of armed timers that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Scheduler) fire(sessionID string, attempt int) {
	s.mu.Lock()
	if attempt == 0 {
		s.pending--
	}
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()
	_, err := s.target.Expire(ctx, sessionID)
	switch {
	case err == nil:
	case apperr.Retryable(err) && attempt < maxRetries:
		log.Printf("expiry: claim for %s failed, retrying: %v", sessionID, err)
		s.clock.AfterFunc(retryDelay, func() { s.fire(sessionID, attempt+1) })
	case errors.Is(err, apperr.ErrSessionNotFound):
		// deleted or purged before its deadline
	default:
		log.Printf("expiry: claim for %s failed: %v", sessionID, err)
	}
}

// Recover re-arms every session still active, typically at process start. Sessions whose deadline
// has already passed expire right away.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	active, err := s.target.ActiveSessions(ctx)
	if err != nil {
		return 0, err
	}
	for _, sess := range active {
		s.Arm(sess.ID, sess.CreatedAt)
	}
	return len(active), nil
}

// Shutdown stops firing new expiries and waits for in-flight claims. Sessions left active are picked
// up by Recover on the next start and by lazy expiry at submit time.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// Wait blocks until in-flight expiry claims complete without closing the scheduler.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
