package tracker

import "fmt"

// ValidationError is a client-correctable rule violation tied to a request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CodeFormatError reports a stored task code that does not follow <project-code>-<n>.
// It signals corrupted data and must not be masked by a default value.
type CodeFormatError struct {
	Code   string
	Reason string
}

func (e *CodeFormatError) Error() string {
	return fmt.Sprintf("malformed task code %q: %s", e.Code, e.Reason)
}
