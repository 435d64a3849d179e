package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/teteocan/aurora-admin/authz"
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
	"github.com/teteocan/aurora-admin/services"
	"go.uber.org/zap"
)

// recordLookupTimeout bounds the shared get-or-create of an administrator record
const recordLookupTimeout = 10 * time.Second

// AdminSession is an authenticated administrator and their stored record
type AdminSession struct {
	UID     string              `json:"uid"`
	Email   string              `json:"email"`
	Record  *models.AdminRecord `json:"admin_record"`
	Subject authz.Subject       `json:"-"`
}

// Authenticate verifies a bearer token and returns the caller as an access subject.
// Expired, revoked and invalid tokens fail with distinct codes.
func (m *Manager) Authenticate(ctx context.Context, bearerToken string) (authz.Subject, error) {
	vt, err := m.verify(ctx, bearerToken)
	if err != nil {
		return authz.Subject{}, err
	}
	return authz.SubjectFromToken(vt), nil
}

// VerifyAdminAndLoad authenticates an administrator. The admin decision is made
// from the verified token alone; the record is loaded, or lazily created, only
// after the caller has been accepted.
func (m *Manager) VerifyAdminAndLoad(ctx context.Context, bearerToken string) (*AdminSession, error) {
	vt, err := m.verify(ctx, bearerToken)
	if err != nil {
		return nil, err
	}

	subject := authz.SubjectFromToken(vt)
	decision := authz.DecideAdminOnly(subject)
	m.metrics.AccessDecision("admin_only", decision.Allowed)
	if !decision.Allowed {
		m.emit(ctx, models.NewAuditLog(models.AuditActionAccessDenied, vt.UID, "", models.OutcomeDenied).
			WithReason(decision.Reason))
		return nil, decision.Err()
	}

	record, err := m.EnsureRecord(ctx, vt)
	if err != nil {
		return nil, err
	}

	return &AdminSession{
		UID:     vt.UID,
		Email:   vt.Email,
		Record:  record,
		Subject: subject,
	}, nil
}

// EnsureRecord returns the stored record for the token's UID, creating it from the
// token's email and claims when absent. Concurrent callers for one UID share a
// single lookup, and creation is insert-if-absent, so every caller observes a record.
func (m *Manager) EnsureRecord(ctx context.Context, vt *models.VerifiedToken) (*models.AdminRecord, error) {
	if vt == nil || vt.UID == "" {
		return nil, services.ErrInvalidInput.WithMessage("verified token with uid is required")
	}

	// the shared lookup outlives any single caller's cancellation
	ch := m.ensure.DoChan(vt.UID, func() (interface{}, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordLookupTimeout)
		defer cancel()
		return m.ensureRecord(sharedCtx, vt)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.AdminRecord), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) ensureRecord(ctx context.Context, vt *models.VerifiedToken) (*models.AdminRecord, error) {
	record, err := m.records.Get(ctx, vt.UID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapPersistence(err)
	}

	record = models.NewAdminRecord(&models.Identity{
		UID:    vt.UID,
		Email:  vt.Email,
		Claims: vt.Claims,
	}, "", m.now())

	created, err := m.records.Create(ctx, record)
	if err != nil {
		return nil, services.WrapPersistence(err)
	}
	if created {
		m.metrics.RecordCreated()
		m.emit(ctx, models.NewAuditLog(models.AuditActionRecordCreated, vt.UID, vt.UID, models.OutcomeSuccess))
		m.logger.Info("administrator record created on first authentication",
			zap.String("uid", vt.UID))
		return record, nil
	}

	// Another instance inserted it first.
	record, err = m.records.Get(ctx, vt.UID)
	if err != nil {
		return nil, services.WrapPersistence(err)
	}
	return record, nil
}

func (m *Manager) verify(ctx context.Context, bearerToken string) (*models.VerifiedToken, error) {
	token := strings.TrimSpace(bearerToken)
	if token == "" || strings.ContainsAny(token, " \t") {
		return nil, services.ErrMissingToken.Wrap(nil)
	}

	var vt *models.VerifiedToken
	err := m.call(ctx, "verify_token", func(ctx context.Context) error {
		var err error
		vt, err = m.identity.VerifyToken(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vt, nil
}
