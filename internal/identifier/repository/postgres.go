package repository

import (
	"context"
	"database/sql"
	"errors"

	"attendance-ledger/backend/internal/platform/apperr"
)

// PostgresRepository reads the identifiers table populated out-of-band (see cmd/seed).
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identifier table backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Lookup returns the secondary identifier for identity. Keys are stored case-folded.
func (r *PostgresRepository) Lookup(ctx context.Context, id string) (string, bool, error) {
	var secondary string
	err := r.db.QueryRowContext(ctx, `SELECT secondary_id FROM identifiers WHERE identity = $1`, id).Scan(&secondary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, apperr.Unavailable(err)
	}
	return secondary, true, nil
}

// Upsert writes entries inside one transaction. Used by the seed tool, never by the ledger.
func (r *PostgresRepository) Upsert(ctx context.Context, entries map[string]string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO identifiers (identity, secondary_id) VALUES ($1, $2)
		 ON CONFLICT (identity) DO UPDATE SET secondary_id = EXCLUDED.secondary_id`)
	if err != nil {
		return 0, apperr.Unavailable(err)
	}
	defer stmt.Close()
	for id, secondary := range entries {
		if _, err := stmt.ExecContext(ctx, id, secondary); err != nil {
			return 0, apperr.Unavailable(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Unavailable(err)
	}
	return len(entries), nil
}
