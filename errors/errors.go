// Package errors defines the failure kinds shared by every layer of parley.
// Core operations fail fast with exactly one of these sentinels; the HTTP
// layer maps them to statuses and the gateway maps them to failure acks.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrConflict           = fmt.Errorf("already taken")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidToken       = fmt.Errorf("invalid token")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrNotFound           = fmt.Errorf("not found")
	ErrContentTooLong     = fmt.Errorf("content too long")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)

// Is re-exports errors.Is so callers don't need two errors imports.
func Is(err, target error) bool { return errors.Is(err, target) }

// HTTPStatus maps a failure kind to its response status.
// Anything unrecognized is an internal fault and maps to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// SafeMessage returns a user-facing message for err. Unrecognized errors get
// a generic message so internal details never leak to the caller.
func SafeMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
