package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"attendance-ledger/backend/internal/device/domain"
	"attendance-ledger/backend/internal/device/repository"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/security"
)

func newTestRegistry() (*Registry, *repository.MemoryRepository) {
	repo := repository.NewMemoryRepository()
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return NewRegistry(repo, security.NewFingerprintHasher("test-key"), clk, nil, nil), repo
}

func TestAuthorize_Sequence(t *testing.T) {
	r, repo := newTestRegistry()
	ctx := context.Background()
	steps := []struct {
		identity, fingerprint string
		want                  domain.Outcome
	}{
		{"a@x", "D1", domain.OutcomeBoundNow},
		{"a@x", "D1", domain.OutcomeAlreadyAuthorized},
		{"A@X ", " D1", domain.OutcomeAlreadyAuthorized},
		{"a@x", "D2", domain.OutcomeMismatch},
		{"b@x", "D2", domain.OutcomeBoundNow},
	}
	for i, st := range steps {
		got, err := r.Authorize(ctx, st.identity, st.fingerprint)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != st.want {
			t.Errorf("step %d: Authorize(%q, %q) = %s, want %s", i, st.identity, st.fingerprint, got, st.want)
		}
	}
	b, _ := repo.GetByIdentity(ctx, "a@x")
	if b == nil || b.FingerprintHash == "D1" || b.FingerprintHash != security.NewFingerprintHasher("test-key").Hash("D1") {
		t.Errorf("binding should hold the keyed hash of D1, got %+v", b)
	}
}

func TestAuthorize_InvalidInput(t *testing.T) {
	r, _ := newTestRegistry()
	for _, tc := range [][2]string{{"", "D1"}, {"a@x", "  "}} {
		if _, err := r.Authorize(context.Background(), tc[0], tc[1]); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Authorize(%q, %q) err = %v, want ErrInvalidInput", tc[0], tc[1], err)
		}
	}
}

func TestAuthorize_ConcurrentFirstUse(t *testing.T) {
	r, repo := newTestRegistry()
	ctx := context.Background()
	const n = 50
	outcomes := make([]domain.Outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp := "D1"
			if i%2 == 1 {
				fp = "D2"
			}
			out, err := r.Authorize(ctx, "race@x", fp)
			if err != nil {
				t.Errorf("Authorize: %v", err)
			}
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	bound := 0
	for _, o := range outcomes {
		if o == domain.OutcomeBoundNow {
			bound++
		}
	}
	if bound != 1 {
		t.Fatalf("bound_now = %d, want exactly 1", bound)
	}
	b, _ := repo.GetByIdentity(ctx, "race@x")
	h := security.NewFingerprintHasher("test-key")
	winner := "D1"
	if b.FingerprintHash == h.Hash("D2") {
		winner = "D2"
	}
	for i, o := range outcomes {
		fp := "D1"
		if i%2 == 1 {
			fp = "D2"
		}
		if fp != winner && o != domain.OutcomeMismatch {
			t.Errorf("goroutine %d with %s got %s, want mismatch", i, fp, o)
		}
		if fp == winner && !o.Authorized() {
			t.Errorf("goroutine %d with winning device got %s", i, o)
		}
	}
}

func TestGet(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()
	if b, err := r.Get(ctx, "nobody@x"); err != nil || b != nil {
		t.Errorf("Get unbound = %+v, %v", b, err)
	}
	_, _ = r.Authorize(ctx, "a@x", "D1")
	if b, err := r.Get(ctx, "A@x"); err != nil || b == nil || b.Identity != "a@x" {
		t.Errorf("Get = %+v, %v", b, err)
	}
}
