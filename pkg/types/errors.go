package types

import (
	"errors"
	"fmt"
)

// ValidationError represents an error that occurs during spec validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a new ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NewFieldValidationError creates a ValidationError scoped to a field.
func NewFieldValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// WrapValidationError wraps an error with additional context, preserving
// its validation nature.
func WrapValidationError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ValidationError{
			Field:   ve.Field,
			Message: fmt.Sprintf("%s: %s", message, ve.Message),
		}
	}
	return &ValidationError{Message: fmt.Sprintf("%s: %v", message, err)}
}
