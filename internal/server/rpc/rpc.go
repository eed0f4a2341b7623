// Package rpc builds gRPC service descriptors whose requests and responses are
// google.protobuf.Struct messages. Payloads are decoded into typed request structs and validated
// before they reach a service.
package rpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/validate"
)

// UnaryFunc handles one Struct-in, Struct-out RPC.
type UnaryFunc func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// FullMethod returns the gRPC full method name, e.g. /attendance.session.v1.SessionService/StopSession.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Method returns a MethodDesc that decodes a Struct, runs the interceptor chain and calls fn.
// Errors from fn are converted with apperr.GRPCStatus.
func Method(service, name string, fn UnaryFunc) grpc.MethodDesc {
	fullMethod := FullMethod(service, name)
	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		resp, err := fn(ctx, req.(*structpb.Struct))
		if err != nil {
			return nil, apperr.GRPCStatus(err)
		}
		return resp, nil
	}
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, call)
		},
	}
}

// ServiceDesc returns a descriptor for service with the given methods. HandlerType is an empty
// interface so any implementation value can be registered.
func ServiceDesc(service string, methods ...grpc.MethodDesc) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*interface{})(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "google/protobuf/struct.proto",
	}
}

// Decode copies req into dst (a pointer to a struct with json tags) and validates it.
// A nil req decodes as an empty object.
func Decode(req *structpb.Struct, dst interface{}) error {
	if req == nil {
		req = &structpb.Struct{}
	}
	b, err := protojson.Marshal(req)
	if err != nil {
		return apperr.Invalid("malformed request")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return apperr.Invalid("malformed request: " + err.Error())
	}
	return validate.Struct(dst)
}

// Encode converts v (marshalled as JSON) into a Struct response.
func Encode(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Invoke calls a Struct RPC on conn. Used by clients and tests.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, fullMethod string, req interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := Encode(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
