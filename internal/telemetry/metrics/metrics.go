// Package metrics records ledger counters on an OpenTelemetry meter.
package metrics

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder holds the ledger's counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	sessionsCreated  metric.Int64Counter
	sessionsTerminal metric.Int64Counter
	submissions      metric.Int64Counter
	sessionsPurged   metric.Int64Counter
	deviceBindings   metric.Int64Counter
}

// New creates the counters on meter. Instrument errors are logged and leave that counter unset.
func New(meter metric.Meter) *Recorder {
	r := &Recorder{}
	r.sessionsCreated = counter(meter, "attendance.sessions.created", "Sessions created")
	r.sessionsTerminal = counter(meter, "attendance.sessions.terminal", "Terminal transitions by cause")
	r.submissions = counter(meter, "attendance.submissions", "Submission attempts by outcome")
	r.sessionsPurged = counter(meter, "attendance.sessions.purged", "Sessions removed by the retention sweep")
	r.deviceBindings = counter(meter, "attendance.device.authorizations", "Device authorizations by outcome")
	return r
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		log.Printf("metrics: counter %s: %v", name, err)
		return nil
	}
	return c
}

func add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c == nil || n == 0 {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attrs...))
}

// SessionCreated counts one new session.
func (r *Recorder) SessionCreated(ctx context.Context) {
	if r == nil {
		return
	}
	add(ctx, r.sessionsCreated, 1)
}

// SessionTerminal counts a won terminal claim with its cause (stopped or expired).
func (r *Recorder) SessionTerminal(ctx context.Context, cause string) {
	if r == nil {
		return
	}
	add(ctx, r.sessionsTerminal, 1, attribute.String("cause", cause))
}

// Submission counts a submit attempt; outcome is "accepted" or an apperr reason.
func (r *Recorder) Submission(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	add(ctx, r.submissions, 1, attribute.String("outcome", outcome))
}

// DeviceAuthorization counts a registry decision (bound_now, already_authorized, mismatch).
func (r *Recorder) DeviceAuthorization(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	add(ctx, r.deviceBindings, 1, attribute.String("outcome", outcome))
}

// SessionsPurged counts sessions removed by a sweep.
func (r *Recorder) SessionsPurged(ctx context.Context, n int) {
	if r == nil {
		return
	}
	add(ctx, r.sessionsPurged, int64(n))
}
