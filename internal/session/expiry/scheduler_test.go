package expiry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"attendance-ledger/backend/internal/history"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/session/domain"
	"attendance-ledger/backend/internal/session/repository"
	"attendance-ledger/backend/internal/session/service"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const duration = 10 * time.Minute

func newWired(t *testing.T) (*service.Service, *Scheduler, *clock.Fake, *repository.MemoryRepository) {
	t.Helper()
	clk := clock.NewFake(start)
	repo := repository.NewMemoryRepository()
	svc := service.NewService(repo, nil, history.NewPolicy(48*time.Hour), clk, service.Config{Duration: duration}, nil, nil)
	sch := NewScheduler(clk, duration, svc)
	svc.SetScheduler(sch)
	return svc, sch, clk, repo
}

func TestScheduler_ExpiresAfterDuration(t *testing.T) {
	svc, sch, clk, _ := newWired(t)
	ctx := context.Background()
	s, _ := svc.Create(ctx, "Test", "o")
	if sch.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", sch.Pending())
	}

	clk.Advance(duration - time.Second)
	got, _ := svc.Get(ctx, s.ID)
	if got.State != domain.StateActive {
		t.Fatalf("state before deadline = %s", got.State)
	}
	clk.Advance(time.Second)
	got, _ = svc.Get(ctx, s.ID)
	if got.State != domain.StateExpired || got.StoppedAt == nil || !got.StoppedAt.Equal(s.CreatedAt.Add(duration)) {
		t.Errorf("after deadline = %+v", got)
	}
	if sch.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", sch.Pending())
	}
}

func TestScheduler_TimerLosesToManualStop(t *testing.T) {
	svc, _, clk, _ := newWired(t)
	ctx := context.Background()
	s, _ := svc.Create(ctx, "Test", "o")

	clk.Advance(time.Minute)
	stopped, _ := svc.Stop(ctx, s.ID)
	clk.Advance(duration)

	got, _ := svc.Get(ctx, s.ID)
	if got.State != domain.StateStopped || !got.StoppedAt.Equal(*stopped.StoppedAt) {
		t.Errorf("timer overwrote manual stop: %+v", got)
	}
}

func TestScheduler_IndependentSessions(t *testing.T) {
	svc, _, clk, _ := newWired(t)
	ctx := context.Background()
	s1, _ := svc.Create(ctx, "S1", "o")
	clk.Advance(5 * time.Minute)
	s2, _ := svc.Create(ctx, "S2", "o")
	clk.Advance(5 * time.Minute)

	g1, _ := svc.Get(ctx, s1.ID)
	g2, _ := svc.Get(ctx, s2.ID)
	if g1.State != domain.StateExpired || g2.State != domain.StateActive {
		t.Errorf("states = %s, %s; want expired, active", g1.State, g2.State)
	}
}

func TestScheduler_Recover(t *testing.T) {
	clk := clock.NewFake(start)
	repo := repository.NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Create(ctx, &domain.Session{ID: "overdue", Code: "AAAAAA", OwnerID: "o", CreatedAt: start.Add(-time.Hour), State: domain.StateActive})
	_ = repo.Create(ctx, &domain.Session{ID: "running", Code: "BBBBBB", OwnerID: "o", CreatedAt: start.Add(-time.Minute), State: domain.StateActive})

	svc := service.NewService(repo, nil, history.NewPolicy(48*time.Hour), clk, service.Config{Duration: duration}, nil, nil)
	sch := NewScheduler(clk, duration, svc)
	n, err := sch.Recover(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Recover = %d, %v", n, err)
	}
	clk.Advance(0)
	if s, _ := repo.GetByID(ctx, "overdue"); s.State != domain.StateExpired {
		t.Errorf("overdue state = %s, want expired", s.State)
	}
	if s, _ := repo.GetByID(ctx, "running"); s.State != domain.StateActive {
		t.Errorf("running state = %s, want active", s.State)
	}
	clk.Advance(9 * time.Minute)
	if s, _ := repo.GetByID(ctx, "running"); s.State != domain.StateExpired {
		t.Errorf("running state = %s, want expired", s.State)
	}
}

// flakyTarget fails Expire with a store error a fixed number of times.
type flakyTarget struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyTarget) Expire(ctx context.Context, id string) (*domain.Session, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, apperr.Unavailable(errors.New("connection refused"))
	}
	return &domain.Session{ID: id, State: domain.StateExpired}, nil
}

func (f *flakyTarget) ActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	return nil, nil
}

func TestScheduler_RetriesStoreFailure(t *testing.T) {
	clk := clock.NewFake(start)
	target := &flakyTarget{failures: 2}
	sch := NewScheduler(clk, duration, target)
	sch.Arm("s1", start)

	clk.Advance(duration)
	clk.Advance(retryDelay)
	clk.Advance(retryDelay)
	if got := target.calls.Load(); got != 3 {
		t.Errorf("Expire calls = %d, want 3", got)
	}
	clk.Advance(time.Hour)
	if got := target.calls.Load(); got != 3 {
		t.Errorf("succeeded claim should not retry, calls = %d", got)
	}
}

// blockingTarget blocks Expire until released.
type blockingTarget struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTarget) Expire(ctx context.Context, id string) (*domain.Session, error) {
	b.entered <- struct{}{}
	<-b.release
	return nil, nil
}

func (b *blockingTarget) ActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	return nil, nil
}

func TestScheduler_ShutdownWaitsAndStopsFiring(t *testing.T) {
	clk := clock.NewFake(start)
	target := &blockingTarget{entered: make(chan struct{}, 1), release: make(chan struct{})}
	sch := NewScheduler(clk, duration, target)
	sch.Arm("s1", start)
	sch.Arm("s2", start.Add(time.Minute))

	go clk.Advance(duration)
	<-target.entered

	var wg sync.WaitGroup
	var shutdownDone atomic.Bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		sch.Shutdown()
		shutdownDone.Store(true)
	}()
	time.Sleep(20 * time.Millisecond)
	if shutdownDone.Load() {
		t.Fatal("Shutdown returned while a claim was in flight")
	}
	close(target.release)
	wg.Wait()

	clk.Advance(time.Hour)
	select {
	case <-target.entered:
		t.Error("timers must not fire after Shutdown")
	default:
	}
}
