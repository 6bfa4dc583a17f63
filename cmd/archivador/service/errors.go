package service

import "errors"

// Not-found outcomes are deliberately distinct: a missing catalog row and a
// row whose blob is gone from disk are both 404s on the wire but carry
// different messages.
var (
	// ErrArchivoNotFound means no catalog row exists for the id.
	ErrArchivoNotFound = errors.New("archivo not found")

	// ErrBlobNotFound means the catalog row exists but the stored file
	// is missing on disk.
	ErrBlobNotFound = errors.New("stored file not found on disk")
)

// ValidationError rejects an upload before any store interaction.
// Reason is the client-facing message.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError creates a validation error with the given client
// message.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}
