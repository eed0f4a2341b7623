package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"attendance-ledger/backend/internal/telemetry/domain"
)

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec   otellog.Record
	calls int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.calls++
}

func attrsOf(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if err := em.Emit(context.Background(), &domain.Event{EventType: "x"}); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestEmit_NilEvent(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	if err := NewEventEmitter(provider).Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}

	capture := &recordCapture{}
	_ = NewEventEmitterWithLogger(capture).Emit(context.Background(), nil)
	if capture.calls != 0 {
		t.Error("nil event should not reach the logger")
	}
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	event := &domain.Event{
		ID:        "e1",
		EventType: domain.EventSubmissionAccepted,
		Source:    "submission",
		SessionID: "s1",
		ActorID:   "a@x",
		Metadata:  map[string]string{"secondary_id": "S123"},
		CreatedAt: at,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := capture.rec
	if !rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), at)
	}
	if rec.EventName() != domain.EventSubmissionAccepted {
		t.Errorf("event name = %q", rec.EventName())
	}
	body := rec.Body().AsMap()
	if len(body) != 1 || body[0].Key != "secondary_id" || body[0].Value.AsString() != "S123" {
		t.Errorf("body = %v", body)
	}
	want := map[string]string{
		"event_id": "e1", "event_type": domain.EventSubmissionAccepted, "source": "submission",
		"session_id": "s1", "actor_id": "a@x",
	}
	attrs := attrsOf(rec)
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_PartialFieldsAndZeroTime(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &domain.Event{EventType: domain.EventSessionsPurged}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := capture.rec
	if rec.Timestamp().Before(before) {
		t.Errorf("timestamp = %v, want now", rec.Timestamp())
	}
	if !rec.Body().Empty() {
		t.Error("body should be empty without metadata")
	}
	attrs := attrsOf(rec)
	if _, ok := attrs["session_id"]; ok {
		t.Error("empty session_id should not be set")
	}
	if attrs["event_type"] != domain.EventSessionsPurged {
		t.Errorf("event_type = %q", attrs["event_type"])
	}
}
