package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/cosmic-backend/internal/domain"
)

// IdentitySource selects where cart routes take the acting user from.
type IdentitySource string

const (
	// IdentityFromToken uses the verified token; a supplied userId must match it.
	IdentityFromToken IdentitySource = "token"
	// IdentityFromRequest trusts the userId in the body or query string.
	IdentityFromRequest IdentitySource = "request"
)

func ParseIdentitySource(s string) (IdentitySource, error) {
	switch src := IdentitySource(s); src {
	case IdentityFromToken, IdentityFromRequest:
		return src, nil
	default:
		return "", fmt.Errorf("unknown identity source %q, want %q or %q", s, IdentityFromToken, IdentityFromRequest)
	}
}

var (
	errUnauthenticated  = errors.New("authentication required")
	errIdentityMismatch = errors.New("userId does not match the authenticated user")
	errMissingUserID    = errors.New("userId is required")
)

// actingUser resolves the user a cart request acts on. supplied is the
// userId the caller sent, if any.
func actingUser(r *http.Request, source IdentitySource, supplied string) (string, int, error) {
	if source == IdentityFromRequest {
		if supplied == "" {
			return "", http.StatusBadRequest, errMissingUserID
		}
		return supplied, 0, nil
	}

	claims, ok := claimsFrom(r.Context())
	if !ok {
		return "", http.StatusUnauthorized, errUnauthenticated
	}
	if supplied != "" && !domain.SameRef(supplied, claims.UserID) {
		return "", http.StatusForbidden, errIdentityMismatch
	}
	return claims.UserID, 0, nil
}
