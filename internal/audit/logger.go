// Package audit records who did what to which session, from both the gRPC and HTTP surfaces.
package audit

import (
	"context"
	"log"

	"github.com/google/uuid"

	"attendance-ledger/backend/internal/audit/domain"
	auditrepo "attendance-ledger/backend/internal/audit/repository"
	"attendance-ledger/backend/internal/platform/clock"
)

// SystemActor stands in for operations that run without a caller, such as the retention sweep.
const SystemActor = "_system"

// Entry is one operation to record. Outcome is the transport status of the operation
// (a gRPC code name or an HTTP status code).
type Entry struct {
	ActorID  string
	Action   string
	Resource string
	TargetID string
	Outcome  string
}

// Recorder stores audit entries. Record never fails the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// ClientIPFunc reads the client address out of a request context.
type ClientIPFunc func(context.Context) string

// Logger is the Recorder backed by an audit repository.
type Logger struct {
	repo     auditrepo.Repository
	clientIP ClientIPFunc
	clock    clock.Clock
}

// NewLogger returns a Logger. clientIP and clk may be nil.
func NewLogger(repo auditrepo.Repository, clientIP ClientIPFunc, clk clock.Clock) *Logger {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Logger{repo: repo, clientIP: clientIP, clock: clk}
}

// Record persists e. Store errors are logged.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil || l.repo == nil {
		return
	}
	row := &domain.AuditLog{
		ID:        uuid.NewString(),
		ActorID:   e.ActorID,
		Action:    e.Action,
		Resource:  e.Resource,
		TargetID:  e.TargetID,
		IP:        "unknown",
		Metadata:  e.Outcome,
		CreatedAt: l.clock.Now().UTC(),
	}
	if row.ActorID == "" {
		row.ActorID = SystemActor
	}
	if l.clientIP != nil {
		if ip := l.clientIP(ctx); ip != "" {
			row.IP = ip
		}
	}
	if err := l.repo.Create(ctx, row); err != nil {
		log.Printf("audit: %s %s by %s not recorded: %v", e.Action, e.Resource, row.ActorID, err)
	}
}
