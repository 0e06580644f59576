package dvelop

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no d.velop API key is configured.
	ErrMissingAPIKey = errors.New("d.velop API key is required")

	// ErrNoSessionID is returned when the login response lacks AuthSessionId.
	ErrNoSessionID = errors.New("AuthSessionId missing in login response")

	// ErrAuthenticationFailed is returned when the identity provider rejects the API key.
	ErrAuthenticationFailed = errors.New("d.velop authentication failed")
)

// AuthError describes a failed identity provider call.
type AuthError struct {
	Op         string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dvelop: %s failed (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("dvelop: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is implements error matching.
func (e *AuthError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
