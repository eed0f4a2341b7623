// Package handler exposes the audit trail to administrators as attendance.audit.v1.AuditService.
package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	auditrepo "attendance-ledger/backend/internal/audit/repository"
	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/policy/engine"
	"attendance-ledger/backend/internal/server/rpc"
)

// ServiceName is the gRPC service served by Register.
const ServiceName = "attendance.audit.v1.AuditService"

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ListRequest filters by actor and paginates by offset.
type ListRequest struct {
	ActorID string `json:"actor_id"`
	Limit   int32  `json:"limit" validate:"gte=0"`
	Offset  int32  `json:"offset" validate:"gte=0"`
}

// EntryView is one audit entry.
type EntryView struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	TargetID  string    `json:"target_id,omitempty"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResponse is a page of entries, newest first.
type ListResponse struct {
	Entries []EntryView `json:"entries"`
}

// Server serves AuditService.
type Server struct {
	repo  auditrepo.Repository
	authz engine.Authorizer
}

// NewServer returns an AuditService server.
func NewServer(repo auditrepo.Repository, authz engine.Authorizer) *Server {
	return &Server{repo: repo, authz: authz}
}

// Register adds AuditService to s.
func Register(s grpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(rpc.ServiceDesc(ServiceName,
		rpc.Method(ServiceName, "ListAuditLogs", srv.listAuditLogs),
	), srv)
}

// List returns audit entries. Administrators only.
func (s *Server) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	if _, err := rbac.Require(ctx, s.authz, engine.ActionListAudit, ""); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	list, err := s.repo.ListByActor(ctx, req.ActorID, limit, req.Offset)
	if err != nil {
		return nil, err
	}
	out := &ListResponse{Entries: make([]EntryView, 0, len(list))}
	for _, e := range list {
		out.Entries = append(out.Entries, EntryView{
			ID: e.ID, ActorID: e.ActorID, Action: e.Action, Resource: e.Resource,
			TargetID: e.TargetID, IP: e.IP, Metadata: e.Metadata, CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}

func (s *Server) listAuditLogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ListRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	out, err := s.List(ctx, in)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}
