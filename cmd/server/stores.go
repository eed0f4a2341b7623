package main

import (
	"database/sql"
	"fmt"
	"log"

	auditrepo "attendance-ledger/backend/internal/audit/repository"
	"attendance-ledger/backend/internal/config"
	"attendance-ledger/backend/internal/db"
	devicerepo "attendance-ledger/backend/internal/device/repository"
	identifierrepo "attendance-ledger/backend/internal/identifier/repository"
	sessionrepo "attendance-ledger/backend/internal/session/repository"
	submissionrepo "attendance-ledger/backend/internal/submission/repository"
)

// stores bundles the repositories selected by STORE_DRIVER and the roster settings.
type stores struct {
	db          *sql.DB
	sessions    sessionrepo.Repository
	submissions submissionrepo.Repository
	devices     devicerepo.Repository
	identifiers identifierrepo.Repository
	audit       auditrepo.Repository
	closers     []func() error
}

func openStores(cfg *config.Config) (*stores, error) {
	st := &stores{}
	switch cfg.StoreDriver {
	case config.StorePostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		st.db = conn
		st.closers = append(st.closers, conn.Close)
		st.sessions = sessionrepo.NewPostgresRepository(conn)
		st.submissions = submissionrepo.NewPostgresRepository(conn)
		st.devices = devicerepo.NewPostgresRepository(conn)
		st.audit = auditrepo.NewPostgresRepository(conn)
		st.identifiers = identifierrepo.NewPostgresRepository(conn)
	default:
		log.Println("server: using in-memory stores; data is lost on restart")
		st.sessions = sessionrepo.NewMemoryRepository()
		st.submissions = submissionrepo.NewMemoryRepository()
		st.devices = devicerepo.NewMemoryRepository()
		st.audit = auditrepo.NewMemoryRepository()
	}

	switch {
	case cfg.RosterSQLitePath != "":
		roster, err := identifierrepo.OpenSQLite(cfg.RosterSQLitePath)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("roster: %w", err)
		}
		st.closers = append(st.closers, roster.Close)
		st.identifiers = roster
		log.Printf("server: resolving identifiers from %s", cfg.RosterSQLitePath)
	case st.identifiers != nil:
	case cfg.RosterCSVPath != "":
		roster, err := identifierrepo.LoadRosterFile(cfg.RosterCSVPath)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("roster: %w", err)
		}
		st.identifiers = roster
		log.Printf("server: loaded %d roster entries from %s", roster.Len(), cfg.RosterCSVPath)
	default:
		st.identifiers = identifierrepo.NewMemoryRepository(nil)
	}
	return st, nil
}

func (st *stores) close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			log.Printf("server: close store: %v", err)
		}
	}
}
