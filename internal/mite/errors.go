package mite

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned for HTTP 401.
	ErrUnauthorized = errors.New("Authentication failed. Check your API key.")

	// ErrForbidden is returned for HTTP 403.
	ErrForbidden = errors.New("Access forbidden. Check your permissions.")

	// ErrNotFound is returned for HTTP 404.
	ErrNotFound = errors.New("Resource not found.")

	// ErrRateLimited is returned for HTTP 429.
	ErrRateLimited = errors.New("Rate limit exceeded. Please try again later.")

	// ErrMissingCredentials is returned when account or API key are empty.
	ErrMissingCredentials = errors.New("mite account and API key are required")
)

// APIError carries the HTTP status and body of a failed mite request.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mite: %s failed: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("mite: %s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap returns the sentinel matching the status code, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

func newAPIError(op string, status int, body string) *APIError {
	apiErr := &APIError{Op: op, StatusCode: status, Body: body}
	switch status {
	case 401:
		apiErr.Err = ErrUnauthorized
	case 403:
		apiErr.Err = ErrForbidden
	case 404:
		apiErr.Err = ErrNotFound
	case 429:
		apiErr.Err = ErrRateLimited
	}
	return apiErr
}
