package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"attendance-ledger/backend/internal/telemetry/domain"
)

// EventEmitter emits domain events (e.g. to Kafka or OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// NewEvent returns an event of eventType stamped with a fresh id and the given time.
func NewEvent(eventType, source, sessionID, actorID string, at time.Time, metadata map[string]string) *domain.Event {
	return &domain.Event{
		ID:        uuid.NewString(),
		EventType: eventType,
		Source:    source,
		SessionID: sessionID,
		ActorID:   actorID,
		Metadata:  metadata,
		CreatedAt: at.UTC(),
	}
}

// FanOut emits to every non-nil emitter and joins their errors.
type FanOut []EventEmitter

// Emit sends event to each emitter in order.
func (f FanOut) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range f {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
