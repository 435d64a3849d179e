package handlers

import (
	"net/http"

	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
)

// AdminSummary is returned after a successful administrator sign-in
type AdminSummary struct {
	UID    string              `json:"uid"`
	Email  string              `json:"email"`
	Record *models.AdminRecord `json:"admin_record"`
}

// ProfileResponse adds the claims carried by the caller's token
type ProfileResponse struct {
	AdminSummary
	Claims map[string]interface{} `json:"custom_claims"`
}

// LoginHandler serves the administrator sign-in surface. Token verification,
// the admin check and lazy record creation happen in RequireAdmin.
type LoginHandler struct {
	logger *zap.Logger
}

// NewLoginHandler creates a new LoginHandler
func NewLoginHandler(logger *zap.Logger) *LoginHandler {
	return &LoginHandler{logger: logger}
}

// HandleVerify handles POST /api/login/verify
func (h *LoginHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	h.logger.Info("admin signed in", zap.String("uid", session.UID))

	_ = utils.WriteOK(w, AdminSummary{
		UID:    session.UID,
		Email:  session.Email,
		Record: session.Record,
	})
}

// HandleProfile handles GET /api/login/profile
func (h *LoginHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	_ = utils.WriteOK(w, ProfileResponse{
		AdminSummary: AdminSummary{
			UID:    session.UID,
			Email:  session.Email,
			Record: session.Record,
		},
		Claims: session.Subject.TokenClaims.ToMap(),
	})
}
