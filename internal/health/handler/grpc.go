// Package handler serves attendance.health.v1.HealthService for readiness and liveness probes.
package handler

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"attendance-ledger/backend/internal/server/rpc"
)

// ServiceName is the gRPC service served by Register.
const ServiceName = "attendance.health.v1.HealthService"

// Serving states reported in the status field.
const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

const checkTimeout = 2 * time.Second

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the authorization policy engine (e.g. *engine.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Response is the HealthCheck result. Checks maps each dependency to "ok" or its error.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server implements HealthService.
type Server struct {
	pinger        Pinger
	policyChecker PolicyChecker
}

// NewServer returns a Health server. Nil dependencies are skipped.
func NewServer(pinger Pinger, policyChecker PolicyChecker) *Server {
	return &Server{pinger: pinger, policyChecker: policyChecker}
}

// Register adds HealthService to s.
func Register(s grpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(rpc.ServiceDesc(ServiceName,
		rpc.Method(ServiceName, "HealthCheck", srv.healthCheck),
	), srv)
}

// Check runs every configured check. A failing check reports NOT_SERVING; it is never an RPC error.
func (s *Server) Check(ctx context.Context) *Response {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	resp := &Response{Status: StatusServing, Checks: map[string]string{}}
	if s.pinger != nil {
		resp.record("database", s.pinger.PingContext(ctx))
	}
	if s.policyChecker != nil {
		resp.record("policy", s.policyChecker.HealthCheck(ctx))
	}
	return resp
}

func (r *Response) record(name string, err error) {
	if err == nil {
		r.Checks[name] = "ok"
		return
	}
	log.Printf("health: %s check failed: %v", name, err)
	r.Checks[name] = err.Error()
	r.Status = StatusNotServing
}

func (s *Server) healthCheck(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return rpc.Encode(s.Check(ctx))
}
