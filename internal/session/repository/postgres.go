package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"attendance-ledger/backend/internal/db"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/session/domain"
)

const sessionColumns = `id, name, code, owner_id, state, created_at, stopped_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts s. Returns ErrCodeTaken when the access code is already in use.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Name, s.Code, s.OwnerID, string(s.State), s.CreatedAt, timeToNullTime(s.StoppedAt))
	if err != nil {
		if db.IsUniqueViolation(err, "sessions_code_key") {
			return ErrCodeTaken
		}
		return apperr.Unavailable(err)
	}
	return nil
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if !isSessionID(id) {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanOne(row)
}

// GetByCode returns the session using code, or nil if not found.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE code = $1`, code)
	return scanOne(row)
}

// ListByOwner returns the owner's sessions created at or after createdFrom, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, createdFrom time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE ($1 = '' OR owner_id = $1) AND created_at >= $2
		 ORDER BY created_at DESC, id DESC`, ownerID, createdFrom)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return scanAll(rows)
}

// ListActive returns every active session.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE state = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return scanAll(rows)
}

// ClaimTerminal relies on the row-level conditional update: only the statement that still sees
// state = 'active' returns a row.
func (r *PostgresRepository) ClaimTerminal(ctx context.Context, id string, state domain.State, at time.Time) (bool, *domain.Session, error) {
	if !isSessionID(id) {
		return false, nil, nil
	}
	row := r.db.QueryRowContext(ctx,
		`UPDATE sessions SET state = $2, stopped_at = $3
		 WHERE id = $1 AND state = 'active'
		 RETURNING `+sessionColumns, id, string(state), at)
	s, err := scanOne(row)
	if err != nil {
		return false, nil, err
	}
	if s != nil {
		return true, s, nil
	}
	current, err := r.GetByID(ctx, id)
	return false, current, err
}

// DeleteMany removes the given sessions; submissions follow through ON DELETE CASCADE. Ids that
// cannot name a session are skipped.
func (r *PostgresRepository) DeleteMany(ctx context.Context, ids []string) ([]string, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isSessionID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	ids = valid
	rows, err := r.db.QueryContext(ctx, `DELETE FROM sessions WHERE id::text = ANY($1) RETURNING id`, ids)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return scanIDs(rows)
}

// DeleteByOwner removes the owner's sessions, or every session when ownerID is empty.
func (r *PostgresRepository) DeleteByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM sessions WHERE ($1 = '' OR owner_id = $1) RETURNING id`, ownerID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return scanIDs(rows)
}

// DeleteCreatedBefore removes sessions created before cutoff.
func (r *PostgresRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM sessions WHERE created_at < $1 RETURNING id`, cutoff)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return scanIDs(rows)
}

// isSessionID reports whether id can be a sessions.id value. Anything else cannot match a row, and
// sending it would fail as a uuid cast error instead.
func isSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*domain.Session, error) {
	var (
		s         domain.Session
		state     string
		stoppedAt sql.NullTime
	)
	if err := sc.Scan(&s.ID, &s.Name, &s.Code, &s.OwnerID, &state, &s.CreatedAt, &stoppedAt); err != nil {
		return nil, err
	}
	s.State = domain.State(state)
	s.CreatedAt = s.CreatedAt.UTC()
	s.StoppedAt = nullTimeToPtr(stoppedAt)
	return &s, nil
}

func scanOne(row *sql.Row) (*domain.Session, error) {
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Unavailable(err)
	}
	return s, nil
}

func scanAll(rows *sql.Rows) ([]*domain.Session, error) {
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return out, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Unavailable(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return ids, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
