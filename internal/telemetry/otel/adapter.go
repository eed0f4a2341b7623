package otel

import (
	"context"
	"sort"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"attendance-ledger/backend/internal/telemetry"
	"attendance-ledger/backend/internal/telemetry/domain"
)

// recordEmitter is the subset of otellog.Logger the emitter needs.
type recordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger("attendance.ledger"))
}

// NewEventEmitterWithLogger wraps an existing logger; tests pass a capturing implementation.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Event) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the event to an OTel log record: identifiers become attributes, metadata becomes a map body.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetEventName(event.EventType)
	if len(event.Metadata) > 0 {
		keys := make([]string, 0, len(event.Metadata))
		for k := range event.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kvs := make([]otellog.KeyValue, 0, len(keys))
		for _, k := range keys {
			kvs = append(kvs, otellog.String(k, event.Metadata[k]))
		}
		rec.SetBody(otellog.MapValue(kvs...))
	}
	for _, kv := range []struct{ key, val string }{
		{"event_id", event.ID},
		{"event_type", event.EventType},
		{"source", event.Source},
		{"session_id", event.SessionID},
		{"actor_id", event.ActorID},
	} {
		if kv.val != "" {
			rec.AddAttributes(otellog.String(kv.key, kv.val))
		}
	}
	e.logger.Emit(ctx, rec)
	return nil
}
