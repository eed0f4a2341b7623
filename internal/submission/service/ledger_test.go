package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	devicerepo "attendance-ledger/backend/internal/device/repository"
	deviceservice "attendance-ledger/backend/internal/device/service"
	"attendance-ledger/backend/internal/history"
	"attendance-ledger/backend/internal/identifier"
	identifierrepo "attendance-ledger/backend/internal/identifier/repository"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/security"
	sessiondomain "attendance-ledger/backend/internal/session/domain"
	"attendance-ledger/backend/internal/session/expiry"
	sessionrepo "attendance-ledger/backend/internal/session/repository"
	sessionservice "attendance-ledger/backend/internal/session/service"
	"attendance-ledger/backend/internal/submission/domain"
	"attendance-ledger/backend/internal/submission/repository"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const duration = 600000 * time.Millisecond

type fixture struct {
	ledger   *Ledger
	sessions *sessionservice.Service
	clock    *clock.Fake
	repo     *repository.MemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(start)
	subs := repository.NewMemoryRepository()
	sessions := sessionservice.NewService(sessionrepo.NewMemoryRepository(), subs, history.NewPolicy(48*time.Hour), clk,
		sessionservice.Config{Duration: duration}, nil, nil)
	sessions.SetScheduler(expiry.NewScheduler(clk, duration, sessions))
	hasher := security.NewFingerprintHasher("test-key")
	registry := deviceservice.NewRegistry(devicerepo.NewMemoryRepository(), hasher, clk, nil, nil)
	resolver := identifier.NewResolver(identifierrepo.NewMemoryRepository(map[string]string{"a@x": "S-100"}))
	return &fixture{
		ledger:   NewLedger(subs, sessions, registry, resolver, hasher, clk, nil, nil),
		sessions: sessions,
		clock:    clk,
		repo:     subs,
	}
}

func TestSubmit_ExampleSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.sessions.Create(ctx, "Test", "instructor")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec, err := f.ledger.SubmitByCode(ctx, s.Code, "a@x", "D1")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if rec.SecondaryID != "S-100" || rec.SessionID != s.ID || !rec.SubmittedAt.Equal(start) {
		t.Errorf("record = %+v", rec)
	}
	if _, err := f.ledger.SubmitByCode(ctx, s.Code, "a@x", "D1"); !errors.Is(err, apperr.ErrDuplicateSubmission) {
		t.Errorf("second submit err = %v, want ErrDuplicateSubmission", err)
	}
	if _, err := f.ledger.SubmitByCode(ctx, s.Code, "a@x", "D2"); !errors.Is(err, apperr.ErrDeviceMismatch) {
		t.Errorf("other device err = %v, want ErrDeviceMismatch", err)
	}
	f.clock.Advance(duration)
	if _, err := f.ledger.SubmitByCode(ctx, s.Code, "b@x", "D3"); !errors.Is(err, apperr.ErrSessionExpired) {
		t.Errorf("after duration err = %v, want ErrSessionExpired", err)
	}

	list, _ := f.ledger.ListBySession(ctx, s.ID)
	if len(list) != 1 || list[0].Identity != "a@x" {
		t.Errorf("ledger = %+v", list)
	}
}

func TestSubmit_UnknownIdentifierRecordsSentinel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	rec, err := f.ledger.Submit(ctx, SubmitInput{SessionID: s.ID, Identity: "carol@x", DeviceFingerprint: "D9"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.SecondaryID != domain.SecondaryIDNotFound {
		t.Errorf("SecondaryID = %q, want sentinel", rec.SecondaryID)
	}
}

func TestSubmit_NormalizesIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	rec, err := f.ledger.SubmitByCode(ctx, s.Code, " A@X ", "D1")
	if err != nil || rec.Identity != "a@x" || rec.SecondaryID != "S-100" {
		t.Fatalf("Submit = %+v, %v", rec, err)
	}
	if _, err := f.ledger.SubmitByCode(ctx, s.Code, "a@x", "D1"); !errors.Is(err, apperr.ErrDuplicateSubmission) {
		t.Errorf("case variant err = %v, want ErrDuplicateSubmission", err)
	}
}

func TestSubmit_DeviceMismatchAcrossSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1, _ := f.sessions.Create(ctx, "S1", "o")
	if _, err := f.ledger.SubmitByCode(ctx, s1.Code, "a@x", "D1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	f.clock.Advance(time.Hour)
	s2, _ := f.sessions.Create(ctx, "S2", "o")
	if _, err := f.ledger.SubmitByCode(ctx, s2.Code, "a@x", "D2"); !errors.Is(err, apperr.ErrDeviceMismatch) {
		t.Errorf("err = %v, want ErrDeviceMismatch", err)
	}
	if _, err := f.ledger.SubmitByCode(ctx, s2.Code, "a@x", "D1"); err != nil {
		t.Errorf("bound device should still submit: %v", err)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	stopped, _ := f.sessions.Create(ctx, "Stopped", "o")
	_, _ = f.sessions.Stop(ctx, stopped.ID)

	testCases := []struct {
		name string
		in   SubmitInput
		want error
	}{
		{"no session", SubmitInput{Identity: "a@x", DeviceFingerprint: "D1"}, apperr.ErrInvalidInput},
		{"no identity", SubmitInput{Code: s.Code, DeviceFingerprint: "D1"}, apperr.ErrInvalidInput},
		{"no fingerprint", SubmitInput{Code: s.Code, Identity: "a@x", DeviceFingerprint: "  "}, apperr.ErrInvalidInput},
		{"unknown code", SubmitInput{Code: "ZZZZZZ", Identity: "a@x", DeviceFingerprint: "D1"}, apperr.ErrSessionNotFound},
		{"unknown id", SubmitInput{SessionID: "missing", Identity: "a@x", DeviceFingerprint: "D1"}, apperr.ErrSessionNotFound},
		{"stopped", SubmitInput{SessionID: stopped.ID, Identity: "a@x", DeviceFingerprint: "D1"}, apperr.ErrSessionExpired},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.ledger.Submit(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSubmit_ConcurrentIdenticalCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	const n = 64

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.SubmitByCode(ctx, s.Code, "a@x", "D1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case !errors.Is(err, apperr.ErrDuplicateSubmission):
			t.Errorf("unexpected err: %v", err)
		}
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want 1", accepted)
	}
	if list, _ := f.ledger.ListBySession(ctx, s.ID); len(list) != 1 {
		t.Errorf("records = %d, want 1", len(list))
	}
}

func TestSubmit_ConcurrentDistinctIdentities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	const n = 40

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.ledger.SubmitByCode(ctx, s.Code, fmt.Sprintf("u%d@x", i), fmt.Sprintf("D%d", i)); err != nil {
				t.Errorf("Submit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	list, _ := f.ledger.ListBySession(ctx, s.ID)
	if len(list) != n {
		t.Fatalf("records = %d, want %d", len(list), n)
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Seq >= list[i].Seq {
			t.Fatal("records not in insertion order")
		}
	}
}

func TestStopDoesNotAffectOtherSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1, _ := f.sessions.Create(ctx, "S1", "o")
	s2, _ := f.sessions.Create(ctx, "S2", "o")
	if _, err := f.sessions.Stop(ctx, s1.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := f.ledger.SubmitByCode(ctx, s1.Code, "a@x", "D1"); !errors.Is(err, apperr.ErrSessionExpired) {
		t.Errorf("stopped session err = %v", err)
	}
	if _, err := f.ledger.SubmitByCode(ctx, s2.Code, "a@x", "D1"); err != nil {
		t.Errorf("S2 should accept: %v", err)
	}
	if list, _ := f.ledger.ListBySession(ctx, s2.ID); len(list) != 1 {
		t.Errorf("S2 records = %d, want 1", len(list))
	}
}

func TestListBySession_Retention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	_, _ = f.ledger.SubmitByCode(ctx, s.Code, "a@x", "D1")

	f.clock.Advance(48*time.Hour + time.Second)
	if _, err := f.ledger.ListBySession(ctx, s.ID); !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Errorf("aged-out session err = %v, want ErrSessionNotFound", err)
	}
}

func TestClearAllCascadesToLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	_, _ = f.ledger.SubmitByCode(ctx, s.Code, "a@x", "D1")

	if n, err := f.sessions.ClearAll(ctx, "o", "o"); err != nil || n != 1 {
		t.Fatalf("ClearAll = %d, %v", n, err)
	}
	if counts, _ := f.repo.CountBySessions(ctx, []string{s.ID}); counts[s.ID] != 0 {
		t.Error("submissions should cascade with the session")
	}
}

// storeDown fails every append.
type storeDown struct {
	*repository.MemoryRepository
}

func (storeDown) Append(ctx context.Context, r *domain.Record) error {
	return apperr.Unavailable(errors.New("connection reset"))
}

func TestSubmit_StoreUnavailableIsRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	f.ledger.repo = storeDown{MemoryRepository: f.repo}
	_, err := f.ledger.SubmitByCode(ctx, s.Code, "a@x", "D1")
	if !apperr.Retryable(err) {
		t.Errorf("err = %v, want retryable", err)
	}
}

// deletingSessions removes the session right after it passes the accepting check, as a concurrent
// DeleteSessions would.
type deletingSessions struct {
	*sessionservice.Service
}

func (d deletingSessions) CheckAccepting(ctx context.Context, sess *sessiondomain.Session) error {
	if err := d.Service.CheckAccepting(ctx, sess); err != nil {
		return err
	}
	_, err := d.Service.DeleteMany(ctx, sess.OwnerID, []string{sess.ID})
	return err
}

func TestSubmit_SessionDeletedMidSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Create(ctx, "Test", "o")
	ledger := NewLedger(f.repo, deletingSessions{f.sessions}, f.ledger.devices, f.ledger.identifiers, f.ledger.hasher, f.clock, nil, nil)

	rec, err := ledger.SubmitByCode(ctx, s.Code, "a@x", "D1")
	if !errors.Is(err, apperr.ErrSessionNotFound) || rec != nil {
		t.Fatalf("submit = %+v, %v; want ErrSessionNotFound", rec, err)
	}
	if list, _ := f.repo.ListBySession(ctx, s.ID); len(list) != 0 {
		t.Errorf("deleted session kept %d record(s)", len(list))
	}
	if counts, _ := f.repo.CountBySessions(ctx, []string{s.ID}); len(counts) != 0 {
		t.Errorf("counts = %v", counts)
	}
}
