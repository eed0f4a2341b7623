// Package rbac carries the authenticated caller through request contexts and checks operations
// against the authorization policy. It is shared by the gRPC and HTTP transports.
package rbac

import (
	"context"

	"attendance-ledger/backend/internal/platform/identity"
)

// Caller is the authenticated principal of a request.
type Caller struct {
	// ID is the normalized identity (token subject).
	ID   string
	Role string
}

type contextKey struct{ name string }

var callerKey = contextKey{"caller"}

// WithCaller returns a context carrying c. The id is normalized.
func WithCaller(ctx context.Context, c Caller) context.Context {
	c.ID = identity.Normalize(c.ID)
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom returns the caller from ctx and true if set.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok && c.ID != ""
}
