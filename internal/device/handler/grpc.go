// Package handler exposes the device binding registry read-only to administrators as
// attendance.device.v1.DeviceService.
package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"attendance-ledger/backend/internal/device/service"
	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/policy/engine"
	"attendance-ledger/backend/internal/server/rpc"
)

// ServiceName is the gRPC service served by Register.
const ServiceName = "attendance.device.v1.DeviceService"

// GetBindingRequest names the identity to look up.
type GetBindingRequest struct {
	Identity string `json:"identity" validate:"notblank"`
}

// BindingView reports whether an identity is bound. The fingerprint hash is never returned.
type BindingView struct {
	Identity string     `json:"identity"`
	Bound    bool       `json:"bound"`
	BoundAt  *time.Time `json:"bound_at,omitempty"`
}

// Server serves DeviceService.
type Server struct {
	registry *service.Registry
	authz    engine.Authorizer
}

// NewServer returns a DeviceService server.
func NewServer(registry *service.Registry, authz engine.Authorizer) *Server {
	return &Server{registry: registry, authz: authz}
}

// Register adds DeviceService to s.
func Register(s grpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(rpc.ServiceDesc(ServiceName,
		rpc.Method(ServiceName, "GetBinding", srv.getBinding),
	), srv)
}

// GetBinding returns the binding state of an identity.
func (s *Server) GetBinding(ctx context.Context, req GetBindingRequest) (*BindingView, error) {
	if _, err := rbac.Require(ctx, s.authz, engine.ActionGetBinding, ""); err != nil {
		return nil, err
	}
	b, err := s.registry.Get(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &BindingView{Identity: req.Identity}, nil
	}
	boundAt := b.BoundAt
	return &BindingView{Identity: b.Identity, Bound: true, BoundAt: &boundAt}, nil
}

func (s *Server) getBinding(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in GetBindingRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	out, err := s.GetBinding(ctx, in)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}
