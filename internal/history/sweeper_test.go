package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"attendance-ledger/backend/internal/platform/clock"
)

type fakeSessions struct {
	mu      sync.Mutex
	created map[string]time.Time
	err     error
	calls   int
}

func (f *fakeSessions) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var ids []string
	for id, at := range f.created {
		if at.Before(cutoff) {
			ids = append(ids, id)
			delete(f.created, id)
		}
	}
	return ids, nil
}

type fakeSubmissions struct {
	bySession map[string]int
}

func (f *fakeSubmissions) DeleteBySessions(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.bySession, id)
	}
	return nil
}

func TestSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	sessions := &fakeSessions{created: map[string]time.Time{
		"old-active":  now.Add(-72 * time.Hour),
		"old-stopped": now.Add(-49 * time.Hour),
		"fresh":       now.Add(-time.Hour),
	}}
	subs := &fakeSubmissions{bySession: map[string]int{"old-active": 2, "old-stopped": 1, "fresh": 5}}
	s := NewSweeper(sessions, subs, NewPolicy(48*time.Hour), clk, time.Minute, nil, nil)

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d, want 2", n)
	}
	if _, ok := sessions.created["fresh"]; !ok || len(sessions.created) != 1 {
		t.Errorf("remaining sessions = %v", sessions.created)
	}
	if len(subs.bySession) != 1 || subs.bySession["fresh"] != 5 {
		t.Errorf("remaining submissions = %v", subs.bySession)
	}

	clk.Advance(47 * time.Hour)
	if n, _ := s.Sweep(context.Background()); n != 0 {
		t.Errorf("second sweep purged %d, want 0", n)
	}
	clk.Advance(2 * time.Hour)
	if n, _ := s.Sweep(context.Background()); n != 1 {
		t.Errorf("third sweep purged %d, want 1", n)
	}
}

func TestSweeper_SweepError(t *testing.T) {
	boom := errors.New("db down")
	s := NewSweeper(&fakeSessions{err: boom}, nil, NewPolicy(0), clock.NewFake(time.Now()), 0, nil, nil)
	if _, err := s.Sweep(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Sweep err = %v, want %v", err, boom)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	sessions := &fakeSessions{created: map[string]time.Time{}}
	s := NewSweeper(sessions, nil, NewPolicy(time.Hour), clock.Real{}, time.Millisecond, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	sessions.mu.Lock()
	defer sessions.mu.Unlock()
	if sessions.calls < 2 {
		t.Errorf("sweeps = %d, want several", sessions.calls)
	}
}
