package invoice

import (
	"errors"
	"fmt"
)

// Common invoice mapping errors
var (
	// ErrMissingTradingPartner is returned when no trading partner could be
	// resolved for a project.
	ErrMissingTradingPartner = errors.New("no trading partner for project")

	// ErrAmountMismatch is returned when the computed document totals do not add up.
	ErrAmountMismatch = errors.New("invoice amounts do not add up")

	// ErrInvalidRate is returned for negative prices or VAT rates outside 0..100.
	ErrInvalidRate = errors.New("invalid price or VAT rate")
)

// MappingError wraps a failure to turn one project aggregate into an invoice document.
type MappingError struct {
	// Op is the mapping step that failed (e.g., "BuildLineItem", "ValidateAmounts").
	Op string

	// ProjectID identifies the project; "Unknown" for entries without project.
	ProjectID string

	// ProjectName is the display name used in operator output.
	ProjectName string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: %s failed for project %s (%s): %s: %v", e.Op, e.ProjectID, e.ProjectName, e.Details, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed for project %s (%s): %v", e.Op, e.ProjectID, e.ProjectName, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *MappingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewMappingError creates a MappingError for the given project aggregate.
func NewMappingError(op string, agg *ProjectAggregate, err error, details string) *MappingError {
	return &MappingError{
		Op:          op,
		ProjectID:   agg.ProjectKey,
		ProjectName: agg.ProjectName,
		Err:         err,
		Details:     details,
	}
}

// ValidationError represents errors in invoice data validation.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
