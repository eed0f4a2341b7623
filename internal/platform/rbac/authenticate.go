package rbac

import (
	"strings"

	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/security"
)

// Headers read from gRPC metadata and HTTP requests.
const (
	HeaderAuthorization = "authorization"
	HeaderUserID        = "x-user-id"
	HeaderUserRole      = "x-user-role"
)

const bearerPrefix = "bearer "

// TokenValidator verifies bearer access tokens (e.g. *security.TokenProvider).
type TokenValidator interface {
	ValidateAccess(token string) (*security.Caller, error)
}

// Credentials are the raw authentication values of one request.
type Credentials struct {
	Authorization string
	UserID        string
	UserRole      string
}

// Authenticate resolves the caller from credentials. With a validator only bearer tokens are
// accepted; without one the trusted-proxy user headers are used and the role defaults to student.
func Authenticate(v TokenValidator, cred Credentials) (Caller, error) {
	if v == nil {
		id := strings.TrimSpace(cred.UserID)
		if id == "" {
			return Caller{}, apperr.ErrUnauthenticated
		}
		role := strings.ToLower(strings.TrimSpace(cred.UserRole))
		if role == "" {
			role = security.RoleStudent
		}
		if !validRole(role) {
			return Caller{}, apperr.ErrUnauthenticated
		}
		return Caller{ID: id, Role: role}, nil
	}
	token := BearerToken(cred.Authorization)
	if token == "" {
		return Caller{}, apperr.ErrUnauthenticated
	}
	c, err := v.ValidateAccess(token)
	if err != nil {
		return Caller{}, apperr.ErrUnauthenticated
	}
	role := strings.ToLower(c.Role)
	if !validRole(role) {
		return Caller{}, apperr.ErrUnauthenticated
	}
	return Caller{ID: c.Subject, Role: role}, nil
}

// BearerToken returns the token of a "Bearer <token>" header value, or "" if malformed.
func BearerToken(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func validRole(role string) bool {
	switch role {
	case security.RoleStudent, security.RoleInstructor, security.RoleAdmin:
		return true
	}
	return false
}
