package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"attendance-ledger/backend/internal/history"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/policy/engine"
	"attendance-ledger/backend/internal/session/repository"
	"attendance-ledger/backend/internal/session/service"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T) (*API, *clock.Fake) {
	t.Helper()
	authz, err := engine.NewOPAEvaluator(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	clk := clock.NewFake(start)
	svc := service.NewService(repository.NewMemoryRepository(), nil, history.NewPolicy(48*time.Hour), clk,
		service.Config{Duration: 10 * time.Minute}, nil, nil)
	return NewAPI(svc, authz), clk
}

func as(id, role string) context.Context {
	return rbac.WithCaller(context.Background(), rbac.Caller{ID: id, Role: role})
}

func TestCreateAndStop(t *testing.T) {
	api, clk := newTestAPI(t)
	owner := as("prof@x", "instructor")

	created, err := api.Create(owner, CreateRequest{Name: "Lecture 1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.Active || created.OwnerID != "prof@x" || !created.ExpiresAt.Equal(start.Add(10*time.Minute)) {
		t.Errorf("created = %+v", created)
	}

	if _, err := api.Stop(as("other@x", "instructor"), SessionIDRequest{SessionID: created.ID}); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("non-owner stop err = %v", err)
	}
	clk.Advance(time.Minute)
	stopped, err := api.Stop(owner, SessionIDRequest{SessionID: created.ID})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped.Active || stopped.State != "stopped" || stopped.StoppedAt == nil || !stopped.StoppedAt.Equal(start.Add(time.Minute)) {
		t.Errorf("stopped = %+v", stopped)
	}
	if _, err := api.Stop(as("admin@x", "admin"), SessionIDRequest{SessionID: created.ID}); err != nil {
		t.Errorf("admin stop: %v", err)
	}
}

func TestCreate_Denied(t *testing.T) {
	api, _ := newTestAPI(t)
	testCases := []struct {
		name string
		ctx  context.Context
		want error
	}{
		{"student", as("s@x", "student"), apperr.ErrPermissionDenied},
		{"anonymous", context.Background(), apperr.ErrUnauthenticated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := api.Create(tc.ctx, CreateRequest{Name: "x"}); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestListDeleteClear(t *testing.T) {
	api, _ := newTestAPI(t)
	prof, other := as("prof@x", "instructor"), as("other@x", "instructor")
	a, _ := api.Create(prof, CreateRequest{Name: "A"})
	b, _ := api.Create(prof, CreateRequest{Name: "B"})
	c, _ := api.Create(other, CreateRequest{Name: "C"})

	list, err := api.List(prof)
	if err != nil || len(list.Sessions) != 2 {
		t.Fatalf("List = %+v, %v", list, err)
	}
	if all, _ := api.List(as("admin@x", "admin")); len(all.Sessions) != 3 {
		t.Errorf("admin List = %d sessions, want 3", len(all.Sessions))
	}

	if _, err := api.Delete(prof, DeleteRequest{IDs: []string{a.ID, c.ID}}); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("deleting another owner's session err = %v", err)
	}
	resp, err := api.Delete(prof, DeleteRequest{IDs: []string{a.ID, "missing"}})
	if err != nil || resp.Deleted != 1 {
		t.Fatalf("Delete = %+v, %v", resp, err)
	}

	cleared, err := api.ClearAll(prof)
	if err != nil || cleared.Deleted != 1 {
		t.Fatalf("ClearAll = %+v, %v", cleared, err)
	}
	if list, _ := api.List(other); len(list.Sessions) != 1 || list.Sessions[0].ID != c.ID {
		t.Error("ClearAll must only clear the caller's sessions")
	}
	_ = b
}

func TestGRPCWrappers(t *testing.T) {
	api, _ := newTestAPI(t)
	ctx := as("prof@x", "instructor")

	req, _ := structpb.NewStruct(map[string]interface{}{"name": "Lecture"})
	resp, err := api.createSession(ctx, req)
	if err != nil {
		t.Fatalf("createSession: %v", err)
	}
	m := resp.AsMap()
	if m["name"] != "Lecture" || m["active"] != true || m["code"] == "" {
		t.Errorf("resp = %v", m)
	}

	empty, _ := structpb.NewStruct(map[string]interface{}{"name": "  "})
	if _, err := api.createSession(ctx, empty); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank name err = %v", err)
	}
	list, err := api.listSessions(ctx, nil)
	if err != nil || len(list.AsMap()["sessions"].([]interface{})) != 1 {
		t.Errorf("listSessions = %v, %v", list, err)
	}
}
