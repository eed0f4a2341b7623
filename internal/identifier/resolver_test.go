package identifier

import (
	"context"
	"errors"
	"testing"

	"attendance-ledger/backend/internal/identifier/repository"
	"attendance-ledger/backend/internal/platform/apperr"
)

type failingRepo struct{}

func (failingRepo) Lookup(ctx context.Context, id string) (string, bool, error) {
	return "", false, apperr.Unavailable(errors.New("disk I/O error"))
}

func TestResolve(t *testing.T) {
	r := NewResolver(repository.NewMemoryRepository(map[string]string{"alice@x": "S-1"}))
	ctx := context.Background()

	got, found, err := r.Resolve(ctx, "  ALICE@x ")
	if err != nil || !found || got != "S-1" {
		t.Errorf("Resolve = %q, %v, %v", got, found, err)
	}
	if _, found, _ := r.Resolve(ctx, "bob@x"); found {
		t.Error("bob should not resolve")
	}
	if _, found, _ := r.Resolve(ctx, "   "); found {
		t.Error("blank identity should not resolve")
	}
}

func TestResolveOrDefault(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		resolver *Resolver
		want     string
	}{
		{"found", NewResolver(repository.NewMemoryRepository(map[string]string{"a@x": "S-1"})), "S-1"},
		{"missing", NewResolver(repository.NewMemoryRepository(nil)), "NOT_FOUND"},
		{"store error", NewResolver(failingRepo{}), "NOT_FOUND"},
		{"no table", NewResolver(nil), "NOT_FOUND"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.resolver.ResolveOrDefault(ctx, "a@x", "NOT_FOUND"); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
