// Package service implements the device binding registry: one identity, one device, for good.
package service

import (
	"context"
	"strings"

	"attendance-ledger/backend/internal/device/domain"
	"attendance-ledger/backend/internal/device/repository"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/platform/identity"
	"attendance-ledger/backend/internal/security"
	"attendance-ledger/backend/internal/telemetry"
	telemetrydomain "attendance-ledger/backend/internal/telemetry/domain"
	"attendance-ledger/backend/internal/telemetry/metrics"
)

// Registry authorizes devices against the permanent identity bindings.
type Registry struct {
	repo    repository.Repository
	hasher  *security.FingerprintHasher
	clock   clock.Clock
	events  telemetry.EventEmitter
	metrics *metrics.Recorder
}

// NewRegistry returns a Registry. events and rec may be nil.
func NewRegistry(repo repository.Repository, hasher *security.FingerprintHasher, clk clock.Clock, events telemetry.EventEmitter, rec *metrics.Recorder) *Registry {
	if hasher == nil {
		hasher = security.NewFingerprintHasher("")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Registry{repo: repo, hasher: hasher, clock: clk, events: events, metrics: rec}
}

// Authorize binds the device on first use and otherwise compares it with the recorded binding.
// A mismatch never changes the binding.
func (r *Registry) Authorize(ctx context.Context, id, fingerprint string) (domain.Outcome, error) {
	id = identity.Normalize(id)
	fingerprint = strings.TrimSpace(fingerprint)
	if id == "" {
		return "", apperr.Invalid("identity is required")
	}
	if fingerprint == "" {
		return "", apperr.Invalid("device fingerprint is required")
	}
	hash := r.hasher.Hash(fingerprint)
	current, created, err := r.repo.BindIfAbsent(ctx, &domain.Binding{
		Identity:        id,
		FingerprintHash: hash,
		BoundAt:         r.clock.Now(),
	})
	if err != nil {
		return "", err
	}
	outcome := domain.OutcomeMismatch
	switch {
	case created:
		outcome = domain.OutcomeBoundNow
		telemetry.EmitAsync(r.events, telemetry.NewEvent(telemetrydomain.EventDeviceBound, "device", "", id, current.BoundAt, nil))
	case r.hasher.Equal(current.FingerprintHash, hash):
		outcome = domain.OutcomeAlreadyAuthorized
	}
	r.metrics.DeviceAuthorization(ctx, string(outcome))
	return outcome, nil
}

// Get returns the binding for an identity, or nil when the identity has never submitted.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Binding, error) {
	id = identity.Normalize(id)
	if id == "" {
		return nil, apperr.Invalid("identity is required")
	}
	return r.repo.GetByIdentity(ctx, id)
}
