package engine

import "context"

// Actions checked by the authorization policy.
const (
	ActionCreateSession  = "create_session"
	ActionListSessions   = "list_sessions"
	ActionStopSession    = "stop_session"
	ActionDeleteSessions = "delete_sessions"
	ActionClearAll       = "clear_all"
	ActionGetSubmissions = "get_submissions"
	ActionSubmit         = "submit"
	ActionGetBinding     = "get_binding"
	ActionListAudit      = "list_audit"
)

// Input is the authorization question: may caller perform action on a resource owned by OwnerID.
type Input struct {
	Action     string
	CallerID   string
	CallerRole string
	// OwnerID is the owner of the target session; empty for actions without a target.
	OwnerID string
}

// Authorizer decides owner and role checks for ledger operations.
type Authorizer interface {
	Allow(ctx context.Context, in Input) (bool, error)
}
