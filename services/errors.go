package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeMissingCredential     ErrorType = "missing_credential"
	ErrorTypeMalformedCredential   ErrorType = "malformed_credential"
	ErrorTypeInvalidCredential     ErrorType = "invalid_credential"
	ErrorTypeExpiredCredential     ErrorType = "expired_credential"
	ErrorTypeUnsupportedCredential ErrorType = "unsupported_credential"
	ErrorTypeForbidden             ErrorType = "forbidden"
	ErrorTypeNotFound              ErrorType = "not_found"
	ErrorTypeInternal              ErrorType = "internal"
)

// statusByType maps each error type to the HTTP status written for it
var statusByType = map[ErrorType]int{
	ErrorTypeMissingCredential:     http.StatusBadRequest,
	ErrorTypeMalformedCredential:   http.StatusBadRequest,
	ErrorTypeInvalidCredential:     http.StatusUnauthorized,
	ErrorTypeExpiredCredential:     http.StatusUnauthorized,
	ErrorTypeUnsupportedCredential: http.StatusBadRequest,
	ErrorTypeForbidden:             http.StatusForbidden,
	ErrorTypeNotFound:              http.StatusNotFound,
	ErrorTypeInternal:              http.StatusInternalServerError,
}

// DomainError represents a structured error with additional context.
// Message is the human-readable text sent to the caller.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
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

// StatusCode returns the HTTP status for the error type
func (e *DomainError) StatusCode() int {
	if status, ok := statusByType[e.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Wrap returns a copy of the error carrying cause as its wrapped error
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Type:    e.Type,
		Message: e.Message,
		Err:     cause,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

var (
	// Credential errors raised by the token gate
	ErrMissingCredential     = NewDomainError(ErrorTypeMissingCredential, "JWT token is required.", nil)
	ErrMalformedCredential   = NewDomainError(ErrorTypeMalformedCredential, "Invalid JWT token.", nil)
	ErrInvalidCredential     = NewDomainError(ErrorTypeInvalidCredential, "Invalid JWT signature.", nil)
	ErrExpiredCredential     = NewDomainError(ErrorTypeExpiredCredential, "Expired JWT token.", nil)
	ErrUnsupportedCredential = NewDomainError(ErrorTypeUnsupportedCredential, "Unsupported JWT token.", nil)

	// Permission errors raised by the access decision
	ErrForbidden = NewDomainError(ErrorTypeForbidden, "No admin privileges.", nil)

	ErrNotFound = NewDomainError(ErrorTypeNotFound, "Resource not found.", nil)
	ErrInternal = NewDomainError(ErrorTypeInternal, "Internal server error.", nil)
)

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsCredentialError checks if an error belongs to the credential taxonomy
func IsCredentialError(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeMissingCredential,
		ErrorTypeMalformedCredential,
		ErrorTypeInvalidCredential,
		ErrorTypeExpiredCredential,
		ErrorTypeUnsupportedCredential:
		return true
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// StatusAndMessage resolves the HTTP status and outward message for any error.
// Errors outside the taxonomy collapse to 500 with a generic message.
func StatusAndMessage(err error) (int, string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.StatusCode(), domainErr.Message
	}
	return http.StatusInternalServerError, ErrInternal.Message
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
