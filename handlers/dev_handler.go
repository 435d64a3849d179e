package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/teteocan/aurora-admin/identity/local"
	"github.com/teteocan/aurora-admin/services"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
)

// SignInProvider mints tokens from email and password. Only the local
// identity provider implements it.
type SignInProvider interface {
	SignIn(ctx context.Context, email, password string) (string, error)
}

// DevTokenRequest is the body of POST /api/dev/token
type DevTokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DevTokenResponse carries a bearer token for local development
type DevTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// DevTokenHandler signs users in against the local identity provider.
// It is only routed in development.
type DevTokenHandler struct {
	provider SignInProvider
	logger   *zap.Logger
}

// NewDevTokenHandler creates a new DevTokenHandler
func NewDevTokenHandler(provider SignInProvider, logger *zap.Logger) *DevTokenHandler {
	return &DevTokenHandler{provider: provider, logger: logger}
}

// HandleToken handles POST /api/dev/token
func (h *DevTokenHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req DevTokenRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	token, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, local.ErrInvalidCredentials) {
			_ = utils.WriteErrorCode(w, http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
			return
		}
		HandleServiceError(w, services.FromIdentityError(err), h.logger, true)
		return
	}

	_ = utils.WriteOK(w, DevTokenResponse{Token: token, TokenType: "Bearer"})
}
