package shared

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingCredentials occurs when the username or password is blank.
	ErrMissingCredentials = errors.New("username or password not provided")
	// ErrMalformedHeader occurs when the Authorization header is not a bearer token.
	ErrMalformedHeader = errors.New("invalid Authorization header value, expected Bearer <token>")
	// ErrUnauthenticated indicates a missing, invalid or expired authentication token.
	ErrUnauthenticated = errors.New("invalid or expired authentication token")
	// ErrNotAuthorized indicates an authenticated principal lacking access.
	ErrNotAuthorized = errors.New("not authorized")
)

// StatusFor maps authentication and authorization errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrMalformedHeader):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// UserSafeMessage returns the message that may be shown to API clients.
// Unknown errors collapse to a generic text so internals never leak.
func UserSafeMessage(err error) string {
	for _, known := range []error{
		ErrMissingCredentials,
		ErrMalformedHeader,
		ErrInvalidCredentials,
		ErrUnauthenticated,
		ErrNotAuthorized,
		ErrNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}
