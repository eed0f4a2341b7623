package domain

import "time"

// Binding permanently ties an identity to one device. Only the keyed hash of the fingerprint is kept.
type Binding struct {
	Identity        string
	FingerprintHash string
	BoundAt         time.Time
}

// Outcome is the registry's decision for one authorization.
type Outcome string

const (
	// OutcomeBoundNow: first use, the binding was just recorded.
	OutcomeBoundNow Outcome = "bound_now"
	// OutcomeAlreadyAuthorized: the fingerprint matches the existing binding.
	OutcomeAlreadyAuthorized Outcome = "already_authorized"
	// OutcomeMismatch: the identity is bound to a different device. State is unchanged.
	OutcomeMismatch Outcome = "mismatch"
)

// Authorized reports whether the device may submit for the identity.
func (o Outcome) Authorized() bool {
	return o == OutcomeBoundNow || o == OutcomeAlreadyAuthorized
}
