package types

import (
	"errors"
	"fmt"
)

// Domain errors for type validation
var (
	// Guide errors
	ErrInvalidGuideID     = errors.New("invalid guide ID")
	ErrEmptyTitle         = errors.New("title cannot be empty")
	ErrInvalidSource      = errors.New("source must be online or offline")
	ErrInvalidSuccessRate = errors.New("success rate must be between 0 and 1")

	// Alias errors
	ErrEmptyAlias     = errors.New("alias cannot be empty")
	ErrEmptyCanonical = errors.New("canonical device id cannot be empty")
	ErrAliasConflict  = errors.New("alias maps to more than one device")
)

// Source errors. These are recovered by degrading to offline-only results
// and never reach the caller as failures.
var (
	ErrSourceTimeout     = errors.New("guide source timed out")
	ErrSourceUnavailable = errors.New("guide source unavailable")
	ErrRateLimited       = fmt.Errorf("%w: rate limit exceeded", ErrSourceUnavailable)
	ErrCircuitOpen       = fmt.Errorf("%w: circuit open", ErrSourceUnavailable)
)

// ErrCacheCompute marks a failed cache computation. Failed computations are
// never stored.
var ErrCacheCompute = errors.New("cache computation failed")

// Validation reasons
const (
	ReasonTooLong      = "too_long"
	ReasonControlChar  = "control_character"
	ReasonInvalidUTF8  = "invalid_utf8"
	ReasonInjection    = "injection_signature"
	ReasonInvalidLang  = "invalid_language"
	ReasonInvalidLimit = "invalid_limit"
)

// ValidationError reports input rejected before normalization
type ValidationError struct {
	Field   string
	Reason  string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%s): %s", e.Field, e.Reason, e.Message)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, reason, message string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Message: message}
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
