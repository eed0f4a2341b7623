package repository

import (
	"context"
	"fmt"
	"testing"

	"attendance-ledger/backend/internal/audit/domain"
)

func TestMemoryRepository_ListByActor(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = repo.Create(ctx, &domain.AuditLog{ID: fmt.Sprint(i), ActorID: "a"})
	}
	_ = repo.Create(ctx, &domain.AuditLog{ID: "b0", ActorID: "b"})

	page, _ := repo.ListByActor(ctx, "a", 2, 1)
	if len(page) != 2 || page[0].ID != "3" || page[1].ID != "2" {
		t.Errorf("page = %+v", page)
	}
	all, _ := repo.ListByActor(ctx, "", 0, 0)
	if len(all) != 6 || all[0].ID != "b0" {
		t.Errorf("all = %d entries", len(all))
	}
}
