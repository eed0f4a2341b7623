// seed loads a roster CSV (identity,secondary_id) into the identifiers table and prints development
// access tokens for an instructor and a student. Idempotent: existing identities are updated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"attendance-ledger/backend/internal/config"
	"attendance-ledger/backend/internal/db"
	identifierrepo "attendance-ledger/backend/internal/identifier/repository"
	"attendance-ledger/backend/internal/security"
)

const (
	devInstructor = "instructor@example.com"
	devStudent    = "student@example.com"
	devTokenTTL   = 24 * time.Hour
)

func main() {
	rosterPath := flag.String("roster", "", "Roster CSV to load (defaults to ROSTER_CSV_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *rosterPath == "" {
		*rosterPath = cfg.RosterCSVPath
	}

	if *rosterPath != "" {
		if cfg.DatabaseURL == "" {
			log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		}
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()

		f, err := os.Open(*rosterPath)
		if err != nil {
			log.Fatalf("roster: %v", err)
		}
		entries, err := identifierrepo.ReadRosterCSV(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("roster: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := identifierrepo.NewPostgresRepository(conn).Upsert(ctx, entries)
		if err != nil {
			log.Fatalf("seed: upsert identifiers: %v", err)
		}
		log.Printf("seed: upserted %d identifiers from %s", n, *rosterPath)
	}

	if cfg.JWTPrivateKey == "" {
		log.Println("seed: JWT_PRIVATE_KEY not set; skipping dev tokens (use x-user-id/x-user-role headers)")
		return
	}
	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("seed: JWT_PRIVATE_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(signer, signer.Public(), cfg.JWTIssuer, cfg.JWTAudience, devTokenTTL)
	for _, dev := range []struct{ subject, role string }{
		{devInstructor, security.RoleInstructor},
		{devStudent, security.RoleStudent},
	} {
		token, exp, err := tokens.IssueAccess(dev.subject, dev.role)
		if err != nil {
			log.Fatalf("seed: issue token: %v", err)
		}
		fmt.Printf("%s (%s, expires %s):\n%s\n\n", dev.subject, dev.role, exp.Format(time.RFC3339), token)
	}
}
