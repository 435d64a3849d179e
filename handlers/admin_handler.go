package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/teteocan/aurora-admin/middleware"
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/services"
	"github.com/teteocan/aurora-admin/services/admin"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
)

// AdminService defines the claim management operations the handlers need.
// admin.Manager implements it.
type AdminService interface {
	GrantAdmin(ctx context.Context, targetUID, actingAdminUID string) (models.Claims, error)
	GrantAdminByEmail(ctx context.Context, email, actingAdminUID string) (*admin.GrantResult, error)
	RegisterAdmin(ctx context.Context, email, password, actingAdminUID string) (*admin.GrantResult, error)
	RevokeAdmin(ctx context.Context, targetUID, actingAdminUID string) (models.Claims, error)
	Reconcile(ctx context.Context, uid string) (*admin.ReconcileReport, error)
	ReconcileByEmail(ctx context.Context, email string) (*admin.ReconcileReport, error)
	Repair(ctx context.Context, uid, actingAdminUID string) (*admin.ReconcileReport, error)
	ListRecords(ctx context.Context, limit, offset int) ([]*models.AdminRecord, error)
}

// SetupAdminRequest grants administrator status to an existing identity
type SetupAdminRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RegisterAdminRequest creates a new identity and makes it an administrator
type RegisterAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// ClaimsResponse describes the claim set written for an identity
type ClaimsResponse struct {
	UID    string                 `json:"uid"`
	Email  string                 `json:"email,omitempty"`
	Admin  bool                   `json:"admin"`
	Claims map[string]interface{} `json:"custom_claims"`
}

// RecordListResponse is a page of administrator records
type RecordListResponse struct {
	Records []*models.AdminRecord `json:"records"`
	Count   int                   `json:"count"`
	Offset  int                   `json:"offset"`
}

// AdminHandler handles administrator management requests
type AdminHandler struct {
	admins       AdminService
	logger       *zap.Logger
	exposeDetail bool
}

// NewAdminHandler creates a new AdminHandler. exposeDetail puts upstream
// failure causes in error responses and should be off in production.
func NewAdminHandler(admins AdminService, logger *zap.Logger, exposeDetail bool) *AdminHandler {
	return &AdminHandler{
		admins:       admins,
		logger:       logger,
		exposeDetail: exposeDetail,
	}
}

// HandleCheckAdmin handles GET /api/setup/check-admin/{email}
func (h *AdminHandler) HandleCheckAdmin(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}

	report, err := h.admins.ReconcileByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, report)
}

// HandleSetupAdmin handles POST /api/setup/setup-admin
func (h *AdminHandler) HandleSetupAdmin(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SetupAdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.admins.GrantAdminByEmail(r.Context(), req.Email, session.UID)
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, claimsResponse(result.UID, result.Email, result.Claims))
}

// HandleRegisterAdmin handles POST /api/admin
func (h *AdminHandler) HandleRegisterAdmin(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req RegisterAdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.admins.RegisterAdmin(r.Context(), req.Email, req.Password, session.UID)
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteCreated(w, claimsResponse(result.UID, result.Email, result.Claims))
}

// HandleGrant handles POST /api/admin/{uid}/grant
func (h *AdminHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	uid := chi.URLParam(r, "uid")
	claims, err := h.admins.GrantAdmin(r.Context(), uid, session.UID)
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, claimsResponse(uid, "", claims))
}

// HandleRevoke handles POST /api/admin/{uid}/revoke
func (h *AdminHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	uid := chi.URLParam(r, "uid")
	claims, err := h.admins.RevokeAdmin(r.Context(), uid, session.UID)
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, claimsResponse(uid, "", claims))
}

// HandleReconcile handles GET /api/admin/{uid}/reconcile
func (h *AdminHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}

	report, err := h.admins.Reconcile(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, report)
}

// HandleRepair handles POST /api/admin/{uid}/repair
func (h *AdminHandler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	report, err := h.admins.Repair(r.Context(), chi.URLParam(r, "uid"), session.UID)
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, report)
}

// HandleListRecords handles GET /api/admin/records
func (h *AdminHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	records, err := h.admins.ListRecords(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, err)
		return
	}
	if records == nil {
		records = []*models.AdminRecord{}
	}
	_ = utils.WriteOK(w, RecordListResponse{Records: records, Count: len(records), Offset: offset})
}

func (h *AdminHandler) session(w http.ResponseWriter, r *http.Request) (*admin.AdminSession, bool) {
	return requireSession(w, r, h.logger)
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeAndValidate(w, r, dst, h.logger)
}

func (h *AdminHandler) fail(w http.ResponseWriter, err error) {
	HandleServiceError(w, err, h.logger, h.exposeDetail)
}

func claimsResponse(uid, email string, claims models.Claims) ClaimsResponse {
	return ClaimsResponse{
		UID:    uid,
		Email:  email,
		Admin:  claims.IsAdmin(),
		Claims: claims.ToMap(),
	}
}

// requireSession returns the session stored by RequireAdmin, writing 401 when absent
func requireSession(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*admin.AdminSession, bool) {
	session := middleware.GetAdminSessionFromContext(r.Context())
	if session == nil {
		logger.Error("admin session not found in context",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		HandleServiceError(w, services.ErrMissingToken, logger, false)
		return nil, false
	}
	return session, true
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// pagination reads limit and offset query parameters. Zero means the service default.
func pagination(r *http.Request) (int, int, error) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, services.ErrInvalidInput.WithMessage(name + " must be a non-negative integer")
	}
	return n, nil
}
