package domain

import "time"

// SecondaryIDNotFound is recorded when the identifier table has no entry for the identity.
const SecondaryIDNotFound = "NOT_FOUND"

// Record is one accepted attendance submission. Records are immutable; they disappear only with
// their session.
type Record struct {
	ID              string
	SessionID       string
	Identity        string
	SecondaryID     string
	FingerprintHash string
	SubmittedAt     time.Time
	// Seq orders records by insertion.
	Seq int64
}
