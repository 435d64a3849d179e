package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teteocan/aurora-admin/authz"
	"github.com/teteocan/aurora-admin/middleware"
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/services"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
)

// BankInfoService defines the bank information operations. Access decisions
// are made by the service from the subject it is given.
type BankInfoService interface {
	Get(ctx context.Context, subject authz.Subject, psychologistID string) (*models.BankInfo, error)
	Put(ctx context.Context, subject authz.Subject, psychologistID string, info *models.BankInfo) (*models.BankInfo, error)
	AdminGet(ctx context.Context, subject authz.Subject, psychologistID string) (*models.BankInfo, error)
	Delete(ctx context.Context, subject authz.Subject, psychologistID string) error
	ListForPayment(ctx context.Context, subject authz.Subject, limit, offset int) ([]*models.BankInfo, error)
}

// BankInfoListResponse is a page of bank information documents
type BankInfoListResponse struct {
	Items  []*models.BankInfo `json:"items"`
	Count  int                `json:"count"`
	Offset int                `json:"offset"`
}

// BankInfoHandler handles psychologist bank information requests
type BankInfoHandler struct {
	bankInfo     BankInfoService
	logger       *zap.Logger
	exposeDetail bool
}

// NewBankInfoHandler creates a new BankInfoHandler
func NewBankInfoHandler(bankInfo BankInfoService, logger *zap.Logger, exposeDetail bool) *BankInfoHandler {
	return &BankInfoHandler{
		bankInfo:     bankInfo,
		logger:       logger,
		exposeDetail: exposeDetail,
	}
}

// HandleGet handles GET /api/bank-info/{psychologistId}
func (h *BankInfoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	doc, err := h.bankInfo.Get(r.Context(), subject, chi.URLParam(r, "psychologistId"))
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, doc)
}

// HandlePut handles PUT /api/bank-info/{psychologistId}
func (h *BankInfoHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	var doc models.BankInfo
	if err := utils.DecodeJSON(r, &doc); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	saved, err := h.bankInfo.Put(r.Context(), subject, chi.URLParam(r, "psychologistId"), &doc)
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, saved)
}

// HandleAdminGet handles GET /api/admin/bank-info/{psychologistId}
func (h *BankInfoHandler) HandleAdminGet(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	doc, err := h.bankInfo.AdminGet(r.Context(), subject, chi.URLParam(r, "psychologistId"))
	if err != nil {
		h.fail(w, err)
		return
	}
	_ = utils.WriteOK(w, doc)
}

// HandleDelete handles DELETE /api/admin/bank-info/{psychologistId}
func (h *BankInfoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	if err := h.bankInfo.Delete(r.Context(), subject, chi.URLParam(r, "psychologistId")); err != nil {
		h.fail(w, err)
		return
	}
	utils.WriteNoContent(w)
}

// HandleListForPayment handles GET /api/admin/bank-info-for-payment
func (h *BankInfoHandler) HandleListForPayment(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	docs, err := h.bankInfo.ListForPayment(r.Context(), subject, limit, offset)
	if err != nil {
		h.fail(w, err)
		return
	}
	if docs == nil {
		docs = []*models.BankInfo{}
	}
	_ = utils.WriteOK(w, BankInfoListResponse{Items: docs, Count: len(docs), Offset: offset})
}

func (h *BankInfoHandler) subject(w http.ResponseWriter, r *http.Request) (authz.Subject, bool) {
	subject, ok := middleware.GetSubjectFromContext(r.Context())
	if !ok {
		h.logger.Error("subject not found in context",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		h.fail(w, services.ErrMissingToken)
		return authz.Subject{}, false
	}
	return subject, true
}

func (h *BankInfoHandler) fail(w http.ResponseWriter, err error) {
	HandleServiceError(w, err, h.logger, h.exposeDetail)
}
