package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeUnsupportedProvider ErrorType = "unsupported_provider"
	ErrorTypeCredential          ErrorType = "credential"
	ErrorTypeConflict            ErrorType = "conflict"
	ErrorTypePersistence         ErrorType = "persistence"
	ErrorTypeInternal            ErrorType = "internal"
	ErrorTypeExternal            ErrorType = "external"
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

// Is matches any DomainError of the same type
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

// Sentinels. Compare with errors.Is (type match) or the Is* helpers; use the
// constructors below when the message or cause should be specific.
var (
	ErrProviderNotFound  = NewDomainError(ErrorTypeNotFound, "provider not found", nil)
	ErrNoDefaultProvider = NewDomainError(ErrorTypeNotFound, "no default provider configured", nil)
	ErrNoActiveAPIKey    = NewDomainError(ErrorTypeNotFound, "no active API key found for provider", nil)
	ErrSessionNotFound   = NewDomainError(ErrorTypeNotFound, "session not found", nil)

	ErrInvalidInput     = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyMessage     = NewDomainError(ErrorTypeValidation, "message cannot be empty", nil)
	ErrProviderInactive = NewDomainError(ErrorTypeValidation, "provider is not active", nil)
	ErrEmptyAPIKey      = NewDomainError(ErrorTypeValidation, "API key cannot be empty", nil)
	ErrInvalidSettings  = NewDomainError(ErrorTypeValidation, "invalid chat settings", nil)
	ErrDuplicateAPIKey  = NewDomainError(ErrorTypeConflict, "API key already stored for provider", nil)

	ErrUnsupportedProvider = NewDomainError(ErrorTypeUnsupportedProvider, "unsupported provider", nil)

	ErrCredentialFormat  = NewDomainError(ErrorTypeCredential, "invalid encrypted credential format", nil)
	ErrCredentialDecrypt = NewDomainError(ErrorTypeCredential, "failed to decrypt credential", nil)

	ErrDatabaseError = NewDomainError(ErrorTypePersistence, "database error", nil)

	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)

	ErrChatFailed       = NewDomainError(ErrorTypeExternal, "chat request to provider failed", nil)
	ErrListModelsFailed = NewDomainError(ErrorTypeExternal, "failed to list models for provider", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnsupportedProviderError checks if an error names a provider outside the supported set
func IsUnsupportedProviderError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnsupportedProvider
}

// IsCredentialError checks if an error is a credential format/decrypt error
func IsCredentialError(err error) bool {
	return GetErrorType(err) == ErrorTypeCredential
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsPersistenceError checks if an error came from the store
func IsPersistenceError(err error) bool {
	return GetErrorType(err) == ErrorTypePersistence
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapPersistence wraps a store failure
func WrapPersistence(message string, err error) error {
	return NewDomainError(ErrorTypePersistence, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// NewUnsupportedProviderError names the rejected provider key
func NewUnsupportedProviderError(name string) *DomainError {
	return NewDomainError(ErrorTypeUnsupportedProvider, fmt.Sprintf("unsupported provider: %s", name), nil).
		WithDetail("provider", name)
}

// NewCredentialFormatError reports a ciphertext that does not decode to iv:cipher
func NewCredentialFormatError(reason string) *DomainError {
	return NewDomainError(ErrorTypeCredential, "invalid encrypted credential format", errors.New(reason))
}
