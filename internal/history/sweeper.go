package history

import (
	"context"
	"log"
	"strconv"
	"time"

	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/telemetry"
	telemetrydomain "attendance-ledger/backend/internal/telemetry/domain"
	"attendance-ledger/backend/internal/telemetry/metrics"
)

// DefaultSweepInterval is how often Run sweeps when no interval is configured.
const DefaultSweepInterval = 10 * time.Minute

// SessionPurger deletes sessions created before cutoff and returns their ids.
type SessionPurger interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// SubmissionPurger removes submissions of deleted sessions. Stores with a cascading foreign key
// may treat it as a no-op.
type SubmissionPurger interface {
	DeleteBySessions(ctx context.Context, sessionIDs []string) error
}

// Sweeper periodically purges sessions outside the retention window along with their submissions.
type Sweeper struct {
	sessions    SessionPurger
	submissions SubmissionPurger
	policy      Policy
	clock       clock.Clock
	interval    time.Duration
	events      telemetry.EventEmitter
	metrics     *metrics.Recorder
}

// NewSweeper returns a Sweeper. events and rec may be nil.
func NewSweeper(sessions SessionPurger, submissions SubmissionPurger, policy Policy, clk clock.Clock, interval time.Duration, events telemetry.EventEmitter, rec *metrics.Recorder) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Sweeper{
		sessions:    sessions,
		submissions: submissions,
		policy:      policy,
		clock:       clk,
		interval:    interval,
		events:      events,
		metrics:     rec,
	}
}

// Sweep deletes every session created before the cutoff, whatever its state, and returns how many
// were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := s.policy.Cutoff(now)
	ids, err := s.sessions.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if s.submissions != nil {
		if err := s.submissions.DeleteBySessions(ctx, ids); err != nil {
			return len(ids), err
		}
	}
	s.metrics.SessionsPurged(ctx, len(ids))
	telemetry.EmitAsync(s.events, telemetry.NewEvent(telemetrydomain.EventSessionsPurged, "history", "", "", now,
		map[string]string{"count": strconv.Itoa(len(ids)), "cutoff": cutoff.Format(time.RFC3339)}))
	return len(ids), nil
}

// Run sweeps once immediately and then every interval until ctx is done. Sweep failures are
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if n, err := s.Sweep(ctx); err != nil {
			log.Printf("history: sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("history: purged %d sessions", n)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
