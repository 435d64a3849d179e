package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeUnauthorized   ErrorType = "unauthorized"
	ErrorTypeForbidden      ErrorType = "forbidden"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeExternal       ErrorType = "external"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypePartialFailure ErrorType = "partial_failure"
)

// ErrorCode is the machine-readable code returned to clients.
// Several codes share one ErrorType (e.g. token_expired and token_invalid are both unauthorized).
type ErrorCode string

const (
	CodeMissingToken     ErrorCode = "missing_token"
	CodeTokenInvalid     ErrorCode = "token_invalid"
	CodeTokenExpired     ErrorCode = "token_expired"
	CodeTokenRevoked     ErrorCode = "token_revoked"
	CodeNotAdmin         ErrorCode = "not_admin"
	CodeAccessDenied     ErrorCode = "access_denied"
	CodeIdentityNotFound ErrorCode = "identity_not_found"
	CodeNotFound         ErrorCode = "not_found"
	CodePersistence      ErrorCode = "persistence_error"
	CodeUpstreamTimeout  ErrorCode = "upstream_timeout"
	CodePartialFailure   ErrorCode = "partial_failure"
	CodeUpstream         ErrorCode = "upstream_error"
	CodeValidation       ErrorCode = "validation"
	CodeConflict         ErrorCode = "conflict"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeInternal         ErrorCode = "internal_error"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.label(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.label(), e.Message)
}

func (e *DomainError) label() string {
	if e.Code != "" {
		return string(e.Code)
	}
	return string(e.Type)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. A target with a Code matches on Code,
// otherwise on Type.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
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

// Wrap returns a copy of e carrying cause. Sentinels are never mutated.
func (e *DomainError) Wrap(cause error) *DomainError {
	out := &DomainError{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Err:     cause,
		Details: make(map[string]interface{}, len(e.Details)),
	}
	for k, v := range e.Details {
		out.Details[k] = v
	}
	return out
}

// WithMessage returns a copy of e with a different message
func (e *DomainError) WithMessage(message string) *DomainError {
	out := e.Wrap(e.Err)
	out.Message = message
	return out
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

// NewCodedError creates a new domain error with a client-facing code
func NewCodedError(errType ErrorType, code ErrorCode, message string) *DomainError {
	e := NewDomainError(errType, message, nil)
	e.Code = code
	return e
}

// Domain error variables

var (
	// Authentication Errors
	ErrMissingToken = NewCodedError(ErrorTypeUnauthorized, CodeMissingToken, "missing bearer token")
	ErrInvalidToken = NewCodedError(ErrorTypeUnauthorized, CodeTokenInvalid, "invalid authentication token")
	ErrTokenExpired = NewCodedError(ErrorTypeUnauthorized, CodeTokenExpired, "authentication token expired")
	ErrTokenRevoked = NewCodedError(ErrorTypeUnauthorized, CodeTokenRevoked, "authentication token revoked, sign in again")

	// Permission Errors
	ErrNotAdmin     = NewCodedError(ErrorTypeForbidden, CodeNotAdmin, "administrator privileges required")
	ErrAccessDenied = NewCodedError(ErrorTypeForbidden, CodeAccessDenied, "access denied")

	// Not Found Errors
	ErrIdentityNotFound    = NewCodedError(ErrorTypeNotFound, CodeIdentityNotFound, "identity not found")
	ErrAdminRecordNotFound = NewCodedError(ErrorTypeNotFound, CodeNotFound, "administrator record not found")
	ErrBankInfoNotFound    = NewCodedError(ErrorTypeNotFound, CodeNotFound, "bank information not found")

	// Validation Errors
	ErrInvalidInput = NewCodedError(ErrorTypeValidation, CodeValidation, "invalid input")
	ErrInvalidEmail = NewCodedError(ErrorTypeValidation, CodeValidation, "invalid email format")
	ErrSelfRevoke   = NewCodedError(ErrorTypeValidation, CodeValidation, "administrators cannot revoke their own privileges")
	ErrNotAnAdmin   = NewCodedError(ErrorTypeValidation, CodeValidation, "user holds no administrator claim or record")

	// Conflict Errors
	ErrDuplicateEmail = NewCodedError(ErrorTypeConflict, CodeConflict, "email already exists")

	// Rate Limit Errors
	ErrRateLimitExceeded = NewCodedError(ErrorTypeRateLimit, CodeRateLimited, "rate limit exceeded")

	// Internal Errors
	ErrInternal    = NewCodedError(ErrorTypeInternal, CodeInternal, "internal server error")
	ErrPersistence = NewCodedError(ErrorTypeInternal, CodePersistence, "record store write failed")

	// Identity Provider Errors
	ErrUpstreamTimeout = NewCodedError(ErrorTypeTimeout, CodeUpstreamTimeout, "identity provider timed out")
	ErrUpstream        = NewCodedError(ErrorTypeExternal, CodeUpstream, "identity provider error")

	// ErrPartialFailure means the claim write and session revocation succeeded but the
	// record write did not. The claim is authoritative; the record is stale until repaired.
	ErrPartialFailure = NewCodedError(ErrorTypePartialFailure, CodePartialFailure,
		"claim updated and sessions revoked, but the administrator record could not be written")
)

// Error type checking helper functions

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return hasType(err, ErrorTypeRateLimit)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return hasType(err, ErrorTypeExternal)
}

// IsTimeoutError checks if an error is an upstream timeout
func IsTimeoutError(err error) bool {
	return hasType(err, ErrorTypeTimeout)
}

// IsPartialFailure checks if an error reports the claim-written, record-not-written state
func IsPartialFailure(err error) bool {
	return hasType(err, ErrorTypePartialFailure)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorCode returns the ErrorCode of a domain error, or empty string if not a domain error
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
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

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapPersistence wraps a record store failure
func WrapPersistence(err error) error {
	return ErrPersistence.Wrap(err)
}
