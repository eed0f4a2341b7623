package domain

import "time"

// AuditLog records one owner or administrative operation.
type AuditLog struct {
	ID       string
	ActorID  string
	Action   string
	Resource string
	// TargetID is the affected session id when the operation has a single target.
	TargetID  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
