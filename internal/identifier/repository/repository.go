package repository

import "context"

// Repository is a read-only reference table from identity to secondary identifier. identity is
// already normalized (trimmed, case-folded) by the caller.
type Repository interface {
	Lookup(ctx context.Context, identity string) (secondaryID string, found bool, err error)
}
