package interceptors

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/security"
	"attendance-ledger/backend/internal/security/securitytest"
)

const (
	publicMethod    = "/attendance.health.v1.HealthService/HealthCheck"
	protectedMethod = "/attendance.session.v1.SessionService/CreateSession"
)

func newTestTokens(t *testing.T) *security.TokenProvider {
	t.Helper()
	return securitytest.NewTokenProvider(t)
}

func callWith(t *testing.T, interceptor grpc.UnaryServerInterceptor, ctx context.Context, method string) (rbac.Caller, bool, error) {
	t.Helper()
	var got rbac.Caller
	var ok bool
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, func(ctx context.Context, req interface{}) (interface{}, error) {
		got, ok = rbac.CallerFrom(ctx)
		return "ok", nil
	})
	return got, ok, err
}

func TestAuthUnary_BearerToken(t *testing.T) {
	tokens := newTestTokens(t)
	token, _, err := tokens.IssueAccess("Prof@X", security.RoleInstructor)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	interceptor := AuthUnary(tokens, map[string]bool{publicMethod: true})

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	got, ok, err := callWith(t, interceptor, ctx, protectedMethod)
	if err != nil || !ok || got.ID != "prof@x" || got.Role != security.RoleInstructor {
		t.Errorf("caller = %+v, %v, %v", got, ok, err)
	}
}

func TestAuthUnary_Rejects(t *testing.T) {
	tokens := newTestTokens(t)
	interceptor := AuthUnary(tokens, map[string]bool{publicMethod: true})
	testCases := []struct {
		name string
		md   metadata.MD
	}{
		{"no metadata", nil},
		{"invalid token", metadata.Pairs("authorization", "Bearer not-a-jwt")},
		{"wrong scheme", metadata.Pairs("authorization", "Basic abc")},
		{"proxy headers need header mode", metadata.Pairs("x-user-id", "a@x")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			_, _, err := callWith(t, interceptor, ctx, protectedMethod)
			if status.Code(err) != codes.Unauthenticated {
				t.Errorf("code = %v, want Unauthenticated", status.Code(err))
			}
			_, ok, err := callWith(t, interceptor, ctx, publicMethod)
			if err != nil || ok {
				t.Errorf("public method = %v, caller set %v", err, ok)
			}
		})
	}
}

func TestAuthUnary_HeaderMode(t *testing.T) {
	interceptor := AuthUnary(nil, nil)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-user-id", "root@x", "x-user-role", "admin"))
	got, ok, err := callWith(t, interceptor, ctx, protectedMethod)
	if err != nil || !ok || got != (rbac.Caller{ID: "root@x", Role: security.RoleAdmin}) {
		t.Errorf("caller = %+v, %v, %v", got, ok, err)
	}
}
