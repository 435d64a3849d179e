package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teteocan/aurora-admin/services"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
)

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"missing token", services.ErrMissingToken, http.StatusUnauthorized, "missing_token"},
		{"expired token", services.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{"revoked token", services.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked"},
		{"invalid token", services.ErrInvalidToken, http.StatusUnauthorized, "token_invalid"},
		{"not admin", services.ErrNotAdmin, http.StatusForbidden, "not_admin"},
		{"access denied", services.ErrAccessDenied, http.StatusForbidden, "access_denied"},
		{"identity not found", services.ErrIdentityNotFound, http.StatusNotFound, "identity_not_found"},
		{"bank info not found", services.ErrBankInfoNotFound, http.StatusNotFound, "not_found"},
		{"validation error", services.ErrInvalidEmail, http.StatusBadRequest, "validation"},
		{"conflict error", services.ErrDuplicateEmail, http.StatusConflict, "conflict"},
		{"rate limit error", services.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limited"},
		{"upstream timeout", services.ErrUpstreamTimeout.Wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "upstream_timeout"},
		{"upstream error", services.ErrUpstream.Wrap(errors.New("boom")), http.StatusBadGateway, "upstream_error"},
		{"persistence error", services.WrapPersistence(errors.New("db down")), http.StatusInternalServerError, "persistence_error"},
		{"partial failure", services.ErrPartialFailure.Wrap(nil), http.StatusInternalServerError, "partial_failure"},
		{"uncoded internal error", services.WrapInternal("failed", errors.New("x")), http.StatusInternalServerError, "internal_error"},
		{"plain error", errors.New("something"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger, false)

			assert.Equal(t, tt.expectedStatus, w.Code)

			response := decodeErrorResponse(t, w)
			assert.Equal(t, tt.expectedError, response.Error)
			assert.NotEmpty(t, response.Message)
		})
	}
}

func TestHandleServiceErrorWithDetails(t *testing.T) {
	logger := zap.NewNop()

	err := services.ErrPartialFailure.Wrap(services.WrapPersistence(errors.New("connection reset"))).
		WithDetail("target_uid", "u-1")

	t.Run("production withholds the cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, err, logger, false)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		response := decodeErrorResponse(t, w)
		assert.Equal(t, "partial_failure", response.Error)
		assert.Equal(t, "u-1", response.Details["target_uid"])
		assert.NotContains(t, response.Details, "cause")
		assert.NotContains(t, w.Body.String(), "connection reset")
	})

	t.Run("development exposes the cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, err, logger, true)

		response := decodeErrorResponse(t, w)
		assert.Equal(t, "u-1", response.Details["target_uid"])
		assert.Contains(t, response.Details["cause"], "connection reset")
	})

	t.Run("sentinel details are not mutated", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, services.ErrUpstream, logger, true)

		assert.NotContains(t, services.ErrUpstream.Details, "cause")
	})
}

func TestHandleServiceErrorNil(t *testing.T) {
	logger := zap.NewNop()
	w := httptest.NewRecorder()

	HandleServiceError(w, nil, logger, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("custom validation error", func(t *testing.T) {
		fields := map[string]string{
			"email": "email is required",
			"clabe": "clabe must be 18 characters",
		}
		err := &utils.ValidationError{
			Message: "Validation failed",
			Fields:  fields,
		}

		w := httptest.NewRecorder()
		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		response := decodeErrorResponse(t, w)
		assert.Equal(t, "validation", response.Error)
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "email is required", response.Details["email"])
		assert.Equal(t, "clabe must be 18 characters", response.Details["clabe"])
	})

	t.Run("generic error", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("request body is required"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		response := decodeErrorResponse(t, w)
		assert.Equal(t, "validation", response.Error)
		assert.Equal(t, "request body is required", response.Message)
	})
}
