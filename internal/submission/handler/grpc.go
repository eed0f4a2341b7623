package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"attendance-ledger/backend/internal/server/rpc"
)

// ServiceName is the gRPC service served by Register.
const ServiceName = "attendance.submission.v1.SubmissionService"

// Register adds SubmissionService to s.
func Register(s grpc.ServiceRegistrar, api *API) {
	s.RegisterService(rpc.ServiceDesc(ServiceName,
		rpc.Method(ServiceName, "Submit", api.submit),
		rpc.Method(ServiceName, "GetSubmissions", api.getSubmissions),
	), api)
}

func (a *API) submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in SubmitRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	out, err := a.Submit(ctx, in)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}

func (a *API) getSubmissions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ListRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	out, err := a.List(ctx, in)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(out)
}
