// Package apperr defines the error kinds the core returns to the API layer.
//
// Producers wrap one of the sentinels with an oops builder so that context
// and a public message travel with the error, and consumers classify with
// errors.Is.
package apperr

import (
	"errors"
	"net/http"

	"github.com/samber/oops"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a duplicate username or email.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks a missing, invalid or expired token, or a failed login.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks a valid token whose account is inactive.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks a record that is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
)

// Validation returns a validation error carrying msg as its public message.
func Validation(code, msg string) error {
	return oops.Code(code).Public(msg).Wrapf(ErrValidation, "%s", msg)
}

// Status maps an error to the HTTP status the API layer responds with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message that is safe to show to the caller.
// Internal errors never leak their text.
func PublicMessage(err error) string {
	status := Status(err)
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg := oopsErr.Public(); msg != "" {
			return msg
		}
	}
	return http.StatusText(status)
}
