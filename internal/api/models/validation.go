package models

import "strings"

// ValidationError is returned by services when input fails validation.
// Handlers render it as a 400 problem carrying the field errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewValidationError wraps a single field error.
func NewValidationError(field, message, code string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message, Code: code}}}
}
