package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teteocan/aurora-admin/identity"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "record not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: record not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
			},
			wantMsg: "validation: invalid input",
		},
		{
			name:    "code takes precedence over type",
			err:     ErrTokenExpired,
			wantMsg: "token_expired: authentication token expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same code", ErrTokenExpired.Wrap(errors.New("x")), ErrTokenExpired, true},
		{"same type different code", ErrTokenExpired, ErrInvalidToken, false},
		{"type-only target matches by type", ErrTokenExpired, NewDomainError(ErrorTypeUnauthorized, "", nil), true},
		{"different type", ErrNotAdmin, ErrTokenExpired, false},
		{"partial failure is not persistence", ErrPartialFailure, ErrPersistence, false},
		{"not a domain error", ErrNotAdmin, errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WrapDoesNotMutateSentinel(t *testing.T) {
	wrapped := ErrPartialFailure.Wrap(errors.New("disk full")).WithDetail("target_uid", "u1")

	assert.Equal(t, "u1", wrapped.Details["target_uid"])
	assert.Empty(t, ErrPartialFailure.Details)
	assert.Nil(t, ErrPartialFailure.Err)
	assert.ErrorIs(t, wrapped, ErrPartialFailure)
}

func TestDomainError_WithMessage(t *testing.T) {
	e := ErrAccessDenied.WithMessage("requires admin or resource owner")

	assert.Equal(t, "requires admin or resource owner", e.Message)
	assert.Equal(t, "access denied", ErrAccessDenied.Message)
	assert.ErrorIs(t, e, ErrAccessDenied)
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("field", "email").WithDetail("value", "invalid-email")

	assert.Equal(t, "email", err.Details["field"])
	assert.Equal(t, "invalid-email", err.Details["value"])
}

func TestTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", ErrIdentityNotFound, IsNotFoundError, true},
		{"wrapped not found", fmt.Errorf("wrapped: %w", ErrAdminRecordNotFound), IsNotFoundError, true},
		{"validation", ErrSelfRevoke, IsValidationError, true},
		{"unauthorized", ErrTokenRevoked, IsUnauthorizedError, true},
		{"forbidden", ErrNotAdmin, IsForbiddenError, true},
		{"rate limit", ErrRateLimitExceeded, IsRateLimitError, true},
		{"conflict", ErrDuplicateEmail, IsConflictError, true},
		{"internal", ErrPersistence, IsInternalError, true},
		{"external", ErrUpstream, IsExternalError, true},
		{"timeout", ErrUpstreamTimeout, IsTimeoutError, true},
		{"partial failure", ErrPartialFailure, IsPartialFailure, true},
		{"partial failure is not internal", ErrPartialFailure, IsInternalError, false},
		{"timeout is not external", ErrUpstreamTimeout, IsExternalError, false},
		{"regular error", errors.New("regular"), IsNotFoundError, false},
		{"nil error", nil, IsForbiddenError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorTypeAndCode(t *testing.T) {
	assert.Equal(t, ErrorTypeUnauthorized, GetErrorType(ErrTokenExpired))
	assert.Equal(t, CodeTokenExpired, GetErrorCode(ErrTokenExpired))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("regular")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("regular")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)
	err.WithDetail("field", "email").WithDetail("reason", "invalid format")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "email", details["field"])
	assert.Equal(t, "invalid format", details["reason"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapHelpers(t *testing.T) {
	baseErr := errors.New("connection refused")

	wrapped := WrapError(ErrorTypeInternal, "wrapped message", baseErr)
	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeInternal, domainErr.Type)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))

	assert.True(t, IsInternalError(WrapInternal("failed", baseErr)))

	persisted := WrapPersistence(baseErr)
	assert.ErrorIs(t, persisted, ErrPersistence)
	assert.ErrorIs(t, persisted, baseErr)
}

func TestFromIdentityError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *DomainError
	}{
		{"deadline", fmt.Errorf("set claims: %w", context.DeadlineExceeded), ErrUpstreamTimeout},
		{"expired", identity.ErrTokenExpired, ErrTokenExpired},
		{"revoked", identity.ErrTokenRevoked, ErrTokenRevoked},
		{"invalid", fmt.Errorf("%w: bad sig", identity.ErrTokenInvalid), ErrInvalidToken},
		{"not found", identity.ErrIdentityNotFound, ErrIdentityNotFound},
		{"email exists", identity.ErrEmailExists, ErrDuplicateEmail},
		{"unknown", errors.New("503"), ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromIdentityError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, FromIdentityError(nil))

	already := ErrNotAdmin.Wrap(nil)
	assert.Same(t, already, FromIdentityError(already))
}
