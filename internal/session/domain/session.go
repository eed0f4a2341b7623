package domain

import "time"

// State is the lifecycle state of an attendance session.
type State string

const (
	// StateActive accepts submissions until stopped or expired.
	StateActive State = "active"
	// StateStopped is terminal: the owner stopped the session.
	StateStopped State = "stopped"
	// StateExpired is terminal: the fixed duration elapsed.
	StateExpired State = "expired"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateStopped, StateExpired:
		return true
	}
	return false
}

// Terminal reports whether s is Stopped or Expired.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateExpired
}

// Session is a named, time-bounded window during which submissions are accepted.
// StoppedAt is non-nil iff State is terminal.
type Session struct {
	ID        string
	Name      string
	Code      string // unique access code among non-purged sessions
	OwnerID   string
	CreatedAt time.Time
	StoppedAt *time.Time
	State     State
}

// ExpiresAt returns the instant the session stops accepting submissions for the given duration.
func (s *Session) ExpiresAt(duration time.Duration) time.Time {
	return s.CreatedAt.Add(duration)
}

// Clone returns a deep copy so stores can hand out values callers may not mutate.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.StoppedAt != nil {
		t := *s.StoppedAt
		c.StoppedAt = &t
	}
	return &c
}

// Summary is a session with its submission count, as returned by owner listings.
type Summary struct {
	*Session
	SubmissionCount int
}
