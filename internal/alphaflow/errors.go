package alphaflow

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInvoiceID is returned when invoice creation succeeds on the
	// HTTP level but the response carries no invoice id.
	ErrMissingInvoiceID = errors.New("invoice id missing in create response")

	// ErrNoWorkflowInstance is returned when an invoice has no running workflow.
	ErrNoWorkflowInstance = errors.New("invoice has no workflow instance")

	// ErrTradingPartnerNotFound is returned when no trading partner matches.
	ErrTradingPartnerNotFound = errors.New("trading partner not found")

	// ErrUnexpectedResponse is returned for response bodies of an unknown shape.
	ErrUnexpectedResponse = errors.New("unexpected response format")
)

// APIError carries the HTTP status and body of a rejected Alphaflow call.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("alphaflow: %s failed: HTTP %d: %s", e.Op, e.StatusCode, body)
}
