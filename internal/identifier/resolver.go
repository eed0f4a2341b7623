// Package identifier resolves a submitter's identity to the secondary identifier (e.g. a student
// number) shown next to each submission.
package identifier

import (
	"context"
	"log"

	"attendance-ledger/backend/internal/identifier/repository"
	"attendance-ledger/backend/internal/platform/identity"
)

// Resolver looks identities up in a read-only reference table, case-insensitively.
type Resolver struct {
	repo repository.Repository
}

// NewResolver returns a Resolver over repo. A nil repo resolves nothing.
func NewResolver(repo repository.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the secondary identifier for id and whether it was found. Store errors are
// returned; callers that must not fail on lookup use ResolveOrDefault.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, bool, error) {
	id = identity.Normalize(id)
	if r == nil || r.repo == nil || id == "" {
		return "", false, nil
	}
	return r.repo.Lookup(ctx, id)
}

// ResolveOrDefault returns the secondary identifier, or fallback when it is missing or the lookup
// fails. Failures are logged.
func (r *Resolver) ResolveOrDefault(ctx context.Context, id, fallback string) string {
	secondary, found, err := r.Resolve(ctx, id)
	if err != nil {
		log.Printf("identifier: lookup failed, recording %s: %v", fallback, err)
		return fallback
	}
	if !found {
		return fallback
	}
	return secondary
}
