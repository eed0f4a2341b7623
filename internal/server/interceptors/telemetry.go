package interceptors

import (
	"context"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/telemetry"
	telemetrydomain "attendance-ledger/backend/internal/telemetry/domain"
)

// TelemetryUnary emits one grpc_request event per RPC not in skip. A nil emitter disables it.
func TelemetryUnary(emitter telemetry.EventEmitter, skip map[string]bool) grpc.UnaryServerInterceptor {
	if emitter == nil {
		return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
			return handler(ctx, req)
		}
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		began := time.Now()
		resp, err := handler(ctx, req)
		if skip[info.FullMethod] {
			return resp, err
		}
		caller, _ := rbac.CallerFrom(ctx)
		ended := time.Now()
		telemetry.EmitAsync(emitter, telemetry.NewEvent(telemetrydomain.EventGRPCRequest, "grpc_interceptor", targetID(req), caller.ID, ended,
			map[string]string{
				"full_method": info.FullMethod,
				"status_code": status.Code(err).String(),
				"duration_ms": strconv.FormatInt(ended.Sub(began).Milliseconds(), 10),
				"client_ip":   ClientIP(ctx),
				"role":        caller.Role,
			}))
		return resp, err
	}
}
