package repository

import (
	"context"
	"database/sql"

	"attendance-ledger/backend/internal/db"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/submission/domain"
)

const recordColumns = `id, seq, session_id, identity, secondary_id, fingerprint_hash, submitted_at`

// PostgresRepository stores submissions in the submissions table; the unique constraint on
// (session_id, identity) decides concurrent duplicates.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a submission repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts rec and sets rec.Seq. A second insert for the same identity and session returns
// ErrDuplicateSubmission; a session deleted in the meantime returns ErrSessionNotFound.
func (r *PostgresRepository) Append(ctx context.Context, rec *domain.Record) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO submissions (id, session_id, identity, secondary_id, fingerprint_hash, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING seq`,
		rec.ID, rec.SessionID, rec.Identity, rec.SecondaryID, rec.FingerprintHash, rec.SubmittedAt).Scan(&rec.Seq)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "submissions_session_identity_key"):
		return apperr.ErrDuplicateSubmission
	case db.IsForeignKeyViolation(err):
		return apperr.ErrSessionNotFound
	default:
		return apperr.Unavailable(err)
	}
}

// ListBySession returns the session's records in insertion order.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM submissions WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []*domain.Record
	for rows.Next() {
		rec := &domain.Record{}
		if err := rows.Scan(&rec.ID, &rec.Seq, &rec.SessionID, &rec.Identity, &rec.SecondaryID, &rec.FingerprintHash, &rec.SubmittedAt); err != nil {
			return nil, apperr.Unavailable(err)
		}
		rec.SubmittedAt = rec.SubmittedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return out, nil
}

// CountBySessions returns record counts for the given sessions in one query.
func (r *PostgresRepository) CountBySessions(ctx context.Context, sessionIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id::text, count(*) FROM submissions
		 WHERE session_id::text = ANY($1)
		 GROUP BY session_id`, sessionIDs)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, apperr.Unavailable(err)
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return out, nil
}

// DeleteBySessions removes the sessions' records. Usually a no-op after ON DELETE CASCADE.
func (r *PostgresRepository) DeleteBySessions(ctx context.Context, sessionIDs []string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE session_id::text = ANY($1)`, sessionIDs); err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}
