package rbac

import (
	"context"
	"log"

	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/policy/engine"
)

// RequireCaller returns the authenticated caller or ErrUnauthenticated.
func RequireCaller(ctx context.Context) (Caller, error) {
	c, ok := CallerFrom(ctx)
	if !ok {
		return Caller{}, apperr.ErrUnauthenticated
	}
	return c, nil
}

// Require ensures the caller is authenticated and the policy allows action on a resource owned by
// ownerID. Policy failures deny.
func Require(ctx context.Context, authz engine.Authorizer, action, ownerID string) (Caller, error) {
	c, err := RequireCaller(ctx)
	if err != nil {
		return Caller{}, err
	}
	allowed, err := authz.Allow(ctx, engine.Input{Action: action, CallerID: c.ID, CallerRole: c.Role, OwnerID: ownerID})
	if err != nil {
		log.Printf("rbac: %s denied, policy error: %v", action, err)
		return Caller{}, apperr.ErrPermissionDenied
	}
	if !allowed {
		return Caller{}, apperr.ErrPermissionDenied
	}
	return c, nil
}
