package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeConfiguration     ErrorType = "configuration"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeDispatchExhausted ErrorType = "dispatch_exhausted"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	// Configuration errors surface at construction, never at call time
	ErrMissingCredential  = NewDomainError(ErrorTypeConfiguration, "API key is required", nil)
	ErrMissingTransport   = NewDomainError(ErrorTypeConfiguration, "transport is required", nil)
	ErrUnknownProvider    = NewDomainError(ErrorTypeConfiguration, "unknown provider", nil)
	ErrInvalidMaxAttempts = NewDomainError(ErrorTypeConfiguration, "max attempts must be at least 1", nil)

	ErrEmptyConversation = NewDomainError(ErrorTypeValidation, "conversation must contain at least one turn", nil)
	ErrDispatchExhausted = NewDomainError(ErrorTypeDispatchExhausted, "dispatch exhausted", nil)
)

// DispatchError is returned by a completion call once every attempt has failed.
// It carries the number of attempts made, the tier of the last attempt and the
// last underlying failure.
type DispatchError struct {
	Attempts int
	Tier     string
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is matches ErrDispatchExhausted so callers can use errors.Is.
func (e *DispatchError) Is(target error) bool {
	return target == ErrDispatchExhausted
}

// NewDispatchError creates a new dispatch error
func NewDispatchError(attempts int, tier string, err error) *DispatchError {
	return &DispatchError{Attempts: attempts, Tier: tier, Err: err}
}

// Error type checking helper functions

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsDispatchExhaustedError checks if an error is a DispatchError
func IsDispatchExhaustedError(err error) bool {
	var dispatchErr *DispatchError
	return errors.As(err, &dispatchErr)
}

// AsDispatchError extracts the DispatchError from err, if any
func AsDispatchError(err error) (*DispatchError, bool) {
	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr, true
	}
	return nil, false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	if IsDispatchExhaustedError(err) {
		return ErrorTypeDispatchExhausted
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	if dispatchErr, ok := AsDispatchError(err); ok {
		return map[string]interface{}{
			"attempts": dispatchErr.Attempts,
			"tier":     dispatchErr.Tier,
		}
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapConfiguration wraps an error as a configuration error
func WrapConfiguration(message string, err error) error {
	return NewDomainError(ErrorTypeConfiguration, message, err)
}
