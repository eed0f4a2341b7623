// Package server assembles the gRPC server: service registration and the interceptor chain.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"attendance-ledger/backend/internal/audit"
	audithandler "attendance-ledger/backend/internal/audit/handler"
	devicehandler "attendance-ledger/backend/internal/device/handler"
	healthhandler "attendance-ledger/backend/internal/health/handler"
	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/server/interceptors"
	"attendance-ledger/backend/internal/server/rpc"
	sessionhandler "attendance-ledger/backend/internal/session/handler"
	submissionhandler "attendance-ledger/backend/internal/submission/handler"
	"attendance-ledger/backend/internal/telemetry"
)

// Deps holds the service handlers and the cross-cutting dependencies of the interceptor chain.
type Deps struct {
	Sessions    *sessionhandler.API
	Submissions *submissionhandler.API
	// Devices serves the read-only binding lookup. If nil, DeviceService is not registered.
	Devices *devicehandler.Server
	// Audit serves ListAuditLogs. If nil, AuditService is not registered.
	Audit  *audithandler.Server
	Health *healthhandler.Server

	// Tokens verifies bearer tokens. If nil, callers are taken from the x-user-id/x-user-role headers.
	Tokens rbac.TokenValidator
	// AuditTrail records owner operations. If nil, no RPCs are audited.
	AuditTrail audit.Recorder
	// Events receives one grpc_request event per RPC. If nil, no request events are emitted.
	Events telemetry.EventEmitter
}

var (
	healthCheckMethod = rpc.FullMethod(healthhandler.ServiceName, "HealthCheck")
	publicMethods     = map[string]bool{healthCheckMethod: true}
	unauditedMethods  = map[string]bool{
		healthCheckMethod: true,
		rpc.FullMethod(audithandler.ServiceName, "ListAuditLogs"): true,
		rpc.FullMethod(sessionhandler.ServiceName, "ListSessions"): true,
	}
	untracedMethods = map[string]bool{healthCheckMethod: true}
)

// NewServer returns a gRPC server with the auth, audit and telemetry interceptors, OTel
// instrumentation, and every configured service registered.
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Tokens, publicMethods),
			interceptors.AuditUnary(deps.AuditTrail, unauditedMethods),
			interceptors.TelemetryUnary(deps.Events, untracedMethods),
		),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers every configured service with s.
//
// Service → handler mapping:
//   - SessionService    → internal/session/handler
//   - SubmissionService → internal/submission/handler
//   - DeviceService     → internal/device/handler
//   - AuditService      → internal/audit/handler
//   - HealthService     → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Sessions != nil {
		sessionhandler.Register(s, deps.Sessions)
	}
	if deps.Submissions != nil {
		submissionhandler.Register(s, deps.Submissions)
	}
	if deps.Devices != nil {
		devicehandler.Register(s, deps.Devices)
	}
	if deps.Audit != nil {
		audithandler.Register(s, deps.Audit)
	}
	health := deps.Health
	if health == nil {
		health = healthhandler.NewServer(nil, nil)
	}
	healthhandler.Register(s, health)
}
