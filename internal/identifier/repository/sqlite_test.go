package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func writeRoster(t *testing.T, rows map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE identifiers (identity TEXT PRIMARY KEY, secondary_id TEXT NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	for id, secondary := range rows {
		if _, err := db.Exec(`INSERT INTO identifiers (identity, secondary_id) VALUES (?, ?)`, id, secondary); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return path
}

func TestSQLiteRepository_Lookup(t *testing.T) {
	path := writeRoster(t, map[string]string{"alice@x": "S-1", "Bob@X": "S-2"})
	repo, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()

	testCases := []struct {
		identity  string
		want      string
		wantFound bool
	}{
		{"alice@x", "S-1", true},
		{"bob@x", "S-2", true},
		{"carol@x", "", false},
	}
	for _, tc := range testCases {
		got, found, err := repo.Lookup(ctx, tc.identity)
		if err != nil || found != tc.wantFound || got != tc.want {
			t.Errorf("Lookup(%q) = %q, %v, %v", tc.identity, got, found, err)
		}
	}
}

func TestOpenSQLite_Errors(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Error("empty path should fail")
	}
	if _, err := OpenSQLite(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("missing roster should fail")
	}
}
