package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"attendance-ledger/backend/internal/platform/apperr"

	_ "modernc.org/sqlite"
)

// SQLiteRepository reads a roster exported as a SQLite file with an identifiers(identity,
// secondary_id) table. The file is opened read-only.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens the roster at path in read-only mode and checks the identifiers table exists.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("roster path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?mode=ro&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM identifiers`).Scan(&n); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Lookup matches the normalized identity exactly or, for rosters not stored folded, after lower().
func (r *SQLiteRepository) Lookup(ctx context.Context, id string) (string, bool, error) {
	var secondary string
	err := r.db.QueryRowContext(ctx,
		`SELECT secondary_id FROM identifiers
		 WHERE identity = ?1 OR lower(trim(identity)) = ?1
		 LIMIT 1`, id).Scan(&secondary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, apperr.Unavailable(err)
	}
	return strings.TrimSpace(secondary), true, nil
}

// Close closes the SQLite handle.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
