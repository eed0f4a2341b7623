package domain

import "time"

// Event types emitted by the services and the transport layers.
const (
	EventSessionCreated     = "session_created"
	EventSessionStopped     = "session_stopped"
	EventSessionExpired     = "session_expired"
	EventSessionsDeleted    = "sessions_deleted"
	EventSessionsPurged     = "sessions_purged"
	EventSubmissionAccepted = "submission_accepted"
	EventSubmissionRejected = "submission_rejected"
	EventDeviceBound        = "device_bound"
	EventGRPCRequest        = "grpc_request"
	EventHTTPRequest        = "http_request"
)

// Event is a best-effort domain event (ledger activity), serialized as JSON on the Kafka topic.
type Event struct {
	ID        string            `json:"id"`
	EventType string            `json:"eventType"`
	Source    string            `json:"source"`
	SessionID string            `json:"sessionId,omitempty"`
	ActorID   string            `json:"actorId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
