package repository

import (
	"context"
	"database/sql"

	"attendance-ledger/backend/internal/audit/domain"
	"attendance-ledger/backend/internal/platform/apperr"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	target := sql.NullString{String: a.TargetID, Valid: a.TargetID != ""}
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, actor_id, action, resource, target_id, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ActorID, a.Action, a.Resource, target, a.IP, meta, a.CreatedAt)
	return apperr.Unavailable(err)
}

// ListByActor returns the actor's audit logs newest first, paginated by limit and offset. An empty
// actorID lists every actor.
func (r *PostgresRepository) ListByActor(ctx context.Context, actorID string, limit, offset int32) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, action, resource, target_id, ip, metadata, created_at
		 FROM audit_logs
		 WHERE ($1 = '' OR actor_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, actorID, limit, offset)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var target, meta sql.NullString
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Action, &a.Resource, &target, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, apperr.Unavailable(err)
		}
		a.TargetID, a.Metadata = target.String, meta.String
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return out, nil
}
