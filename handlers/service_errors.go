package handlers

import (
	"errors"
	"net/http"

	"github.com/teteocan/aurora-admin/services"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
//
// Upstream and internal failures carry their cause in details only when
// exposeDetail is set; otherwise the cause is logged and withheld.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger, exposeDetail bool) {
	if err == nil {
		return
	}

	status, upstream := statusFor(err)
	code := codeFor(err)
	message := messageFor(err)
	details := copyDetails(services.GetErrorDetails(err))

	if upstream {
		logger.Error("service error",
			zap.String("code", code),
			zap.Int("status", status),
			zap.Any("details", details),
			zap.Error(err))
		if exposeDetail {
			if details == nil {
				details = make(map[string]interface{})
			}
			details["cause"] = err.Error()
		}
	} else {
		logger.Debug("handled service error",
			zap.String("code", code),
			zap.Int("status", status),
			zap.Error(err))
	}

	if err := utils.WriteErrorCode(w, status, code, message, details); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// statusFor returns the HTTP status for err and whether it is an upstream or
// internal failure whose cause must not leak by default.
func statusFor(err error) (int, bool) {
	switch {
	case services.IsUnauthorizedError(err):
		return http.StatusUnauthorized, false
	case services.IsForbiddenError(err):
		return http.StatusForbidden, false
	case services.IsNotFoundError(err):
		return http.StatusNotFound, false
	case services.IsValidationError(err):
		return http.StatusBadRequest, false
	case services.IsConflictError(err):
		return http.StatusConflict, false
	case services.IsRateLimitError(err):
		return http.StatusTooManyRequests, false
	case services.IsTimeoutError(err):
		return http.StatusGatewayTimeout, true
	case services.IsExternalError(err):
		return http.StatusBadGateway, true
	default:
		return http.StatusInternalServerError, true
	}
}

func codeFor(err error) string {
	if code := services.GetErrorCode(err); code != "" {
		return string(code)
	}
	switch services.GetErrorType(err) {
	case "":
		return string(services.CodeInternal)
	case services.ErrorTypeInternal:
		return string(services.CodeInternal)
	default:
		return string(services.GetErrorType(err))
	}
}

func messageFor(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return "An unexpected error occurred"
}

func copyDetails(in map[string]interface{}) map[string]interface{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteErrorCode(w, http.StatusBadRequest, string(services.CodeValidation), "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteErrorCode(w, http.StatusBadRequest, string(services.CodeValidation), err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
