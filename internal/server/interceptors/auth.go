package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/rbac"
)

// AuthUnary resolves the caller from the request metadata and stores it in the context. Methods in
// public run even when no caller can be resolved; every other method fails Unauthenticated.
func AuthUnary(tokens rbac.TokenValidator, public map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		caller, err := rbac.Authenticate(tokens, rbac.Credentials{
			Authorization: firstValue(md, rbac.HeaderAuthorization),
			UserID:        firstValue(md, rbac.HeaderUserID),
			UserRole:      firstValue(md, rbac.HeaderUserRole),
		})
		switch {
		case err == nil:
			return handler(rbac.WithCaller(ctx, caller), req)
		case public[info.FullMethod]:
			return handler(ctx, req)
		default:
			return nil, apperr.GRPCStatus(err)
		}
	}
}
