package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"attendance-ledger/backend/internal/server/rpc"
)

// ServiceName is the gRPC service served by Register.
const ServiceName = "attendance.session.v1.SessionService"

// Register adds SessionService to s.
func Register(s grpc.ServiceRegistrar, api *API) {
	s.RegisterService(rpc.ServiceDesc(ServiceName,
		rpc.Method(ServiceName, "CreateSession", api.createSession),
		rpc.Method(ServiceName, "StopSession", api.stopSession),
		rpc.Method(ServiceName, "ListSessions", api.listSessions),
		rpc.Method(ServiceName, "DeleteSessions", api.deleteSessions),
		rpc.Method(ServiceName, "ClearAll", api.clearAll),
	), api)
}

func (a *API) createSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in CreateRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	out, err := a.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}

func (a *API) stopSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in SessionIDRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	out, err := a.Stop(ctx, in)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}

func (a *API) listSessions(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}

func (a *API) deleteSessions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in DeleteRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	out, err := a.Delete(ctx, in)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}

func (a *API) clearAll(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out, err := a.ClearAll(ctx)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}
