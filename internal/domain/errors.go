package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Caller-input errors. These must surface to the caller so that misuse is
// distinguishable from an empty result.
var (
	ErrInvalidTable       = NewDomainError(ErrCodeValidation, "table is not in the whitelist")
	ErrInvalidEmbedding   = NewDomainError(ErrCodeValidation, "embedding is empty or malformed")
	ErrEmbeddingDimension = NewDomainError(ErrCodeValidation, "embedding dimension mismatch")
	ErrInvalidRadius      = NewDomainError(ErrCodeValidation, "radius must be positive")
	ErrInvalidCoordinates = NewDomainError(ErrCodeValidation, "coordinates out of range")
	ErrUnsafeColumn       = NewDomainError(ErrCodeValidation, "filter column is not a safe identifier")
	ErrInvalidLimit       = NewDomainError(ErrCodeValidation, "limit must be positive")
	// ErrTableCapability marks a whitelisted table that lacks the column a
	// search type needs, as opposed to a table outside the whitelist.
	ErrTableCapability = NewDomainError(ErrCodeValidation, "table does not support this search type")
)

// Data errors
var (
	ErrMalformedLocalizedField = NewDomainError(ErrCodeInternalError, "malformed localized JSON field")
)

// Not found errors
var (
	ErrRecordNotFound = NewDomainError(ErrCodeNotFound, "record not found")
	ErrMediaNotFound  = NewDomainError(ErrCodeNotFound, "record has no media")
)

// Availability errors
var (
	// ErrSearchUnavailable is returned when every contributing searcher
	// failed; a partial failure degrades to fewer results instead.
	ErrSearchUnavailable = NewDomainError(ErrCodeUnavailable, "search temporarily unavailable")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
