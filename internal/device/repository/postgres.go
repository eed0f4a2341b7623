package repository

import (
	"context"
	"database/sql"
	"errors"

	"attendance-ledger/backend/internal/device/domain"
	"attendance-ledger/backend/internal/platform/apperr"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a binding repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByIdentity returns the binding for identity, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByIdentity(ctx context.Context, identity string) (*domain.Binding, error) {
	var b domain.Binding
	err := r.db.QueryRowContext(ctx,
		`SELECT identity, fingerprint_hash, bound_at FROM device_bindings WHERE identity = $1`, identity).
		Scan(&b.Identity, &b.FingerprintHash, &b.BoundAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Unavailable(err)
	}
	b.BoundAt = b.BoundAt.UTC()
	return &b, nil
}

// BindIfAbsent inserts b with ON CONFLICT DO NOTHING; a concurrent loser reads the winner's row.
func (r *PostgresRepository) BindIfAbsent(ctx context.Context, b *domain.Binding) (*domain.Binding, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO device_bindings (identity, fingerprint_hash, bound_at) VALUES ($1, $2, $3)
		 ON CONFLICT (identity) DO NOTHING`, b.Identity, b.FingerprintHash, b.BoundAt)
	if err != nil {
		return nil, false, apperr.Unavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		created := *b
		return &created, true, nil
	}
	current, err := r.GetByIdentity(ctx, b.Identity)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, apperr.Unavailable(errors.New("device binding vanished after conflict"))
	}
	return current, false, nil
}
