// Package apperr defines the error taxonomy shared by the session, submission and device services
// and maps it to gRPC and HTTP status codes at the transport edges.
package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinel errors; services return them (optionally wrapped) and handlers map them to status codes.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session is not accepting submissions")
	ErrDuplicateSubmission = errors.New("identity already submitted for this session")
	ErrDeviceMismatch      = errors.New("identity is bound to a different device")
	// ErrIdentifierNotFound is informational: the ledger records a sentinel instead of failing.
	ErrIdentifierNotFound = errors.New("secondary identifier not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrUnauthenticated    = errors.New("caller identity required")
	ErrPermissionDenied   = errors.New("permission denied")
)

// storeError wraps a driver failure so it matches ErrStoreUnavailable and still unwraps to the cause.
type storeError struct {
	cause error
}

func (e *storeError) Error() string {
	return ErrStoreUnavailable.Error() + ": " + e.cause.Error()
}

func (e *storeError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.cause}
}

// Unavailable wraps err as a retryable store failure. Returns nil for a nil err.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &storeError{cause: err}
}

// Invalid returns an ErrInvalidInput carrying msg for the caller.
func Invalid(msg string) error {
	return &invalidError{msg: msg}
}

type invalidError struct {
	msg string
}

func (e *invalidError) Error() string { return ErrInvalidInput.Error() + ": " + e.msg }
func (e *invalidError) Unwrap() error { return ErrInvalidInput }

// Retryable reports whether the caller may retry the same request. Only store failures are retryable;
// every other kind is a definitive outcome.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// GRPCCode returns the gRPC code for err.
func GRPCCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, ErrSessionNotFound):
		return codes.NotFound
	case errors.Is(err, ErrSessionExpired):
		return codes.FailedPrecondition
	case errors.Is(err, ErrDuplicateSubmission):
		return codes.AlreadyExists
	case errors.Is(err, ErrDeviceMismatch):
		return codes.PermissionDenied
	case errors.Is(err, ErrPermissionDenied):
		return codes.PermissionDenied
	case errors.Is(err, ErrUnauthenticated):
		return codes.Unauthenticated
	case errors.Is(err, ErrStoreUnavailable):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// GRPCStatus converts err to a gRPC status error. Internal errors get a generic message so driver
// details do not leak to callers.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := GRPCCode(err)
	switch code {
	case codes.Internal:
		return status.Error(code, "internal error")
	case codes.Unavailable:
		return status.Error(code, ErrStoreUnavailable.Error())
	}
	return status.Error(code, err.Error())
}

// Reason returns a stable machine-readable reason for err, used in HTTP bodies and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, ErrSessionExpired):
		return "SESSION_EXPIRED"
	case errors.Is(err, ErrDuplicateSubmission):
		return "DUPLICATE_SUBMISSION"
	case errors.Is(err, ErrDeviceMismatch):
		return "DEVICE_MISMATCH"
	case errors.Is(err, ErrIdentifierNotFound):
		return "IDENTIFIER_NOT_FOUND"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrPermissionDenied):
		return "PERMISSION_DENIED"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	switch GRPCCode(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusGone
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
