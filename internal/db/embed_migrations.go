package db

import "embed"

// MigrationFS holds the schema for sessions, submissions, device bindings, identifiers and audit logs.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
