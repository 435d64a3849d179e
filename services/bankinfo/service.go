// Package bankinfo serves psychologist banking documents under the
// self-or-admin and admin-only access policies.
package bankinfo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/teteocan/aurora-admin/authz"
	"github.com/teteocan/aurora-admin/internal/observability"
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
	"github.com/teteocan/aurora-admin/services"
	"github.com/teteocan/aurora-admin/services/audit"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
)

const (
	policySelfOrAdmin = "self_or_admin"
	policyAdminOnly   = "admin_only"
)

// Service handles bank information business logic
type Service struct {
	repo      repositories.BankInfoRepository
	txManager repositories.TransactionManager
	audit     audit.Sink
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a bank information service. sink and metrics may be nil.
func NewService(
	repo repositories.BankInfoRepository,
	txManager repositories.TransactionManager,
	sink audit.Sink,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     sink,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the document of psychologistID to its owner or an administrator
func (s *Service) Get(ctx context.Context, subject authz.Subject, psychologistID string) (*models.BankInfo, error) {
	if err := s.authorize(ctx, subject, policySelfOrAdmin, authz.DecideSelfOrAdmin(subject, psychologistID), psychologistID); err != nil {
		return nil, err
	}
	return s.load(ctx, s.repo, psychologistID)
}

// Put validates and stores the document of psychologistID for its owner or an administrator
func (s *Service) Put(ctx context.Context, subject authz.Subject, psychologistID string, info *models.BankInfo) (*models.BankInfo, error) {
	if err := s.authorize(ctx, subject, policySelfOrAdmin, authz.DecideSelfOrAdmin(subject, psychologistID), psychologistID); err != nil {
		return nil, err
	}
	if info == nil {
		return nil, services.ErrInvalidInput.WithMessage("bank information is required")
	}

	doc := *info
	doc.PsychologistID = psychologistID
	doc.CLABE = strings.TrimSpace(doc.CLABE)
	doc.SwiftCode = strings.ToUpper(strings.TrimSpace(doc.SwiftCode))
	if err := utils.ValidateStruct(&doc); err != nil {
		verr := services.ErrInvalidInput.WithMessage("invalid bank information")
		for field, msg := range utils.GetValidationFields(err) {
			verr.WithDetail(field, msg)
		}
		return nil, verr
	}
	doc.UpdatedAt = s.now()

	if err := s.repo.Put(ctx, &doc); err != nil {
		s.logger.Error("failed to store bank information",
			zap.String("psychologist_id", psychologistID),
			zap.Error(err))
		return nil, services.WrapPersistence(err)
	}

	s.logger.Info("bank information updated",
		zap.String("psychologist_id", psychologistID),
		zap.String("actor_uid", subject.UID))
	return &doc, nil
}

// AdminGet returns any psychologist's document to an administrator
func (s *Service) AdminGet(ctx context.Context, subject authz.Subject, psychologistID string) (*models.BankInfo, error) {
	if err := s.authorize(ctx, subject, policyAdminOnly, authz.DecideAdminOnly(subject), psychologistID); err != nil {
		return nil, err
	}
	return s.load(ctx, s.repo, psychologistID)
}

// Delete removes a psychologist's document. Administrators only.
func (s *Service) Delete(ctx context.Context, subject authz.Subject, psychologistID string) error {
	if err := s.authorize(ctx, subject, policyAdminOnly, authz.DecideAdminOnly(subject), psychologistID); err != nil {
		return err
	}

	var deleted *models.BankInfo
	err := services.WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		repo := s.repo.WithTx(tx)
		doc, err := s.load(ctx, repo, psychologistID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, psychologistID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return services.ErrBankInfoNotFound.Wrap(err)
			}
			return services.WrapPersistence(err)
		}
		deleted = doc
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, models.NewAuditLog(models.AuditActionBankInfoDelete, subject.UID, psychologistID, models.OutcomeSuccess).
		WithDetail("bank_name", deleted.BankName).
		WithDetail("clabe", deleted.MaskedCLABE()))
	s.logger.Info("bank information deleted",
		zap.String("psychologist_id", psychologistID),
		zap.String("actor_uid", subject.UID))
	return nil
}

// ListForPayment pages through every stored document for payout processing. Administrators only.
func (s *Service) ListForPayment(ctx context.Context, subject authz.Subject, limit, offset int) ([]*models.BankInfo, error) {
	if err := s.authorize(ctx, subject, policyAdminOnly, authz.DecideAdminOnly(subject), ""); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, services.WrapPersistence(err)
	}
	return docs, nil
}

func (s *Service) load(ctx context.Context, repo repositories.BankInfoRepository, psychologistID string) (*models.BankInfo, error) {
	doc, err := repo.Get(ctx, psychologistID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrBankInfoNotFound.Wrap(err).WithDetail("psychologist_id", psychologistID)
		}
		return nil, services.WrapPersistence(err)
	}
	return doc, nil
}

func (s *Service) authorize(ctx context.Context, subject authz.Subject, policy string, decision authz.Decision, resourceOwner string) error {
	s.metrics.AccessDecision(policy, decision.Allowed)
	if decision.Allowed {
		return nil
	}

	s.logger.Warn("access denied",
		zap.String("uid", subject.UID),
		zap.String("policy", policy),
		zap.String("reason", decision.Reason))
	s.emit(ctx, models.NewAuditLog(models.AuditActionAccessDenied, subject.UID, resourceOwner, models.OutcomeDenied).
		WithReason(decision.Reason).
		WithDetail("resource", "bank_info"))
	return decision.Err()
}

func (s *Service) emit(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	info := audit.RequestInfoFromContext(ctx)
	entry.WithRequest(info.RequestID, info.IPAddress, info.UserAgent)
	if err := s.audit.LogAsync(entry); err != nil {
		s.logger.Warn("audit entry not recorded", zap.Error(err))
	}
}
