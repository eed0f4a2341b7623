package interceptors

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"attendance-ledger/backend/internal/audit"
	"attendance-ledger/backend/internal/platform/rbac"
)

// AuditUnary records each RPC made by an authenticated caller once the handler returns. Methods in
// skip are not recorded. The target is the request's session_id field.
func AuditUnary(logger audit.Recorder, skip map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if logger == nil || skip[info.FullMethod] {
			return resp, err
		}
		caller, ok := rbac.CallerFrom(ctx)
		if !ok {
			return resp, err
		}
		action, resource := audit.ActionFor(info.FullMethod)
		logger.Record(ctx, audit.Entry{
			ActorID:  caller.ID,
			Action:   action,
			Resource: resource,
			TargetID: targetID(req),
			Outcome:  status.Code(err).String(),
		})
		return resp, err
	}
}

func targetID(req interface{}) string {
	s, ok := req.(*structpb.Struct)
	if !ok || s == nil {
		return ""
	}
	if v, ok := s.GetFields()["session_id"]; ok {
		return v.GetStringValue()
	}
	return ""
}

// ClientIP returns the first x-forwarded-for hop, then x-real-ip, then the peer host. It returns
// "unknown" when none is available.
func ClientIP(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if hop := firstValue(md, "x-forwarded-for"); hop != "" {
		first, _, _ := strings.Cut(hop, ",")
		return strings.TrimSpace(first)
	}
	if ip := firstValue(md, "x-real-ip"); ip != "" {
		return ip
	}
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func firstValue(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
