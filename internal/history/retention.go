// Package history enforces the retention window over sessions and their submissions: a lazy
// visibility filter used by every read path and a background sweep that deletes aged-out data.
package history

import "time"

// DefaultWindow is the retention window used when none is configured.
const DefaultWindow = 48 * time.Hour

// Policy is a fixed retention window measured from session creation.
type Policy struct {
	window time.Duration
}

// NewPolicy returns a Policy; a non-positive window falls back to DefaultWindow.
func NewPolicy(window time.Duration) Policy {
	if window <= 0 {
		window = DefaultWindow
	}
	return Policy{window: window}
}

// Window returns the retention duration.
func (p Policy) Window() time.Duration {
	if p.window <= 0 {
		return DefaultWindow
	}
	return p.window
}

// Cutoff returns the oldest creation time still retained at now.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.Window())
}

// Visible reports whether a session created at createdAt is still inside the window at now.
func (p Policy) Visible(createdAt, now time.Time) bool {
	return !createdAt.Before(p.Cutoff(now))
}
