// Package admin keeps the identity provider's admin claim and the stored
// administrator records consistent.
//
// The identity provider is authoritative. Every claim change is written to the
// provider and followed by session revocation before the record is touched, and
// the record is never read to decide whether a caller is an administrator.
package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/teteocan/aurora-admin/identity"
	"github.com/teteocan/aurora-admin/internal/observability"
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
	"github.com/teteocan/aurora-admin/services"
	"github.com/teteocan/aurora-admin/services/audit"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultIdentityTimeout bounds a single identity provider call when Config leaves it unset
const DefaultIdentityTimeout = 5 * time.Second

const minPasswordLength = 6

// operation labels for logs and metrics
const (
	opGrant    = "grant"
	opRevoke   = "revoke"
	opRegister = "register"
	opRepair   = "repair"
)

// Config holds Manager tuning
type Config struct {
	IdentityTimeout time.Duration
	Now             func() time.Time
}

// Manager is the claim consistency manager
type Manager struct {
	identity identity.Provider
	records  repositories.AdminRecordRepository
	audit    audit.Sink
	metrics  *observability.Metrics
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time

	ensure singleflight.Group
}

// NewManager wires a Manager. sink and metrics may be nil.
func NewManager(
	provider identity.Provider,
	records repositories.AdminRecordRepository,
	sink audit.Sink,
	metrics *observability.Metrics,
	logger *zap.Logger,
	cfg Config,
) *Manager {
	if cfg.IdentityTimeout <= 0 {
		cfg.IdentityTimeout = DefaultIdentityTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		identity: provider,
		records:  records,
		audit:    sink,
		metrics:  metrics,
		logger:   logger,
		timeout:  cfg.IdentityTimeout,
		now:      cfg.Now,
	}
}

// GrantResult describes the identity a claim change was applied to
type GrantResult struct {
	UID    string        `json:"uid"`
	Email  string        `json:"email"`
	Claims models.Claims `json:"-"`
}

// GrantAdmin merges admin=true into the target's claims, revokes the target's
// sessions and then writes the administrator record.
//
// A failure after revocation leaves the claim granted and the record stale; it
// is reported as services.ErrPartialFailure and the returned claims are the
// ones written to the provider. Nothing is retried or rolled back.
func (m *Manager) GrantAdmin(ctx context.Context, targetUID, actingAdminUID string) (models.Claims, error) {
	target, err := m.getUser(ctx, targetUID)
	if err != nil {
		m.finish(ctx, opGrant, models.AuditActionAdminGrant, actingAdminUID, targetUID, err)
		return models.Claims{}, err
	}
	return m.grant(ctx, target, actingAdminUID)
}

// GrantAdminByEmail resolves email with the identity provider and grants admin to that user
func (m *Manager) GrantAdminByEmail(ctx context.Context, email, actingAdminUID string) (*GrantResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var target *models.Identity
	err = m.call(ctx, "get_user_by_email", func(ctx context.Context) error {
		var err error
		target, err = m.identity.GetUserByEmail(ctx, email)
		return err
	})
	if err != nil {
		m.finish(ctx, opGrant, models.AuditActionAdminGrant, actingAdminUID, "", withDetail(err, "email", email))
		return nil, err
	}

	claims, err := m.grant(ctx, target, actingAdminUID)
	if err != nil && !services.IsPartialFailure(err) {
		return nil, err
	}
	return &GrantResult{UID: target.UID, Email: target.Email, Claims: claims}, err
}

// RegisterAdmin creates a new identity and grants it admin
func (m *Manager) RegisterAdmin(ctx context.Context, email, password, actingAdminUID string) (*GrantResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, services.ErrInvalidInput.WithMessage("password must be at least 6 characters").
			WithDetail("field", "password")
	}

	var created *models.Identity
	err = m.call(ctx, "create_user", func(ctx context.Context) error {
		var err error
		created, err = m.identity.CreateUser(ctx, email, password)
		return err
	})
	m.finish(ctx, opRegister, models.AuditActionAdminRegister, actingAdminUID, uidOf(created), err)
	if err != nil {
		return nil, err
	}

	claims, err := m.grant(ctx, created, actingAdminUID)
	if err != nil && !services.IsPartialFailure(err) {
		return nil, err
	}
	return &GrantResult{UID: created.UID, Email: created.Email, Claims: claims}, err
}

// RevokeAdmin mirrors GrantAdmin with admin=false. The record is kept with
// role "revoked". Administrators cannot revoke themselves, and a user with
// neither the claim nor a record is rejected without touching their sessions.
func (m *Manager) RevokeAdmin(ctx context.Context, targetUID, actingAdminUID string) (models.Claims, error) {
	if targetUID != "" && targetUID == actingAdminUID {
		err := services.ErrSelfRevoke.Wrap(nil)
		m.finish(ctx, opRevoke, models.AuditActionAdminRevoke, actingAdminUID, targetUID, err)
		return models.Claims{}, err
	}

	target, err := m.getUser(ctx, targetUID)
	if err != nil {
		m.finish(ctx, opRevoke, models.AuditActionAdminRevoke, actingAdminUID, targetUID, err)
		return models.Claims{}, err
	}

	if !target.Claims.IsAdmin() {
		if err := m.requireRecord(ctx, targetUID); err != nil {
			m.finish(ctx, opRevoke, models.AuditActionAdminRevoke, actingAdminUID, targetUID, err)
			return models.Claims{}, err
		}
	}

	claims, err := m.applyClaims(ctx, target, false, actingAdminUID)
	m.finish(ctx, opRevoke, models.AuditActionAdminRevoke, actingAdminUID, targetUID, err)
	if err != nil && !services.IsPartialFailure(err) {
		return models.Claims{}, err
	}
	return claims, err
}

// requireRecord fails with ErrNotAnAdmin when uid has no administrator record.
// A stale record still allows the revoke, which brings it in line with the claim.
func (m *Manager) requireRecord(ctx context.Context, uid string) error {
	_, err := m.records.Get(ctx, uid)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return services.ErrNotAnAdmin.Wrap(nil).WithDetail("target_uid", uid)
	default:
		return services.WrapPersistence(err)
	}
}

// ListRecords pages through stored administrator records
func (m *Manager) ListRecords(ctx context.Context, limit, offset int) ([]*models.AdminRecord, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 100:
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	records, err := m.records.List(ctx, limit, offset)
	if err != nil {
		return nil, services.WrapPersistence(err)
	}
	return records, nil
}

func (m *Manager) grant(ctx context.Context, target *models.Identity, actingAdminUID string) (models.Claims, error) {
	claims, err := m.applyClaims(ctx, target, true, actingAdminUID)
	m.finish(ctx, opGrant, models.AuditActionAdminGrant, actingAdminUID, target.UID, err)
	if err != nil && !services.IsPartialFailure(err) {
		return models.Claims{}, err
	}
	return claims, err
}

// applyClaims runs the ordered claim change: set claims, revoke sessions, write record.
func (m *Manager) applyClaims(ctx context.Context, target *models.Identity, admin bool, actingAdminUID string) (models.Claims, error) {
	merged := target.Claims.WithAdmin(admin)

	err := m.call(ctx, "set_claims", func(ctx context.Context) error {
		return m.identity.SetClaims(ctx, target.UID, merged.ToMap())
	})
	if err != nil {
		return models.Claims{}, withDetail(err, "stage", "set_claims")
	}

	err = m.call(ctx, "revoke_sessions", func(ctx context.Context) error {
		return m.identity.RevokeSessions(ctx, target.UID)
	})
	if err != nil {
		// The claim is already written; the outcome of revocation is unknown
		// so the record is left alone.
		return models.Claims{}, withDetail(withDetail(err, "stage", "revoke_sessions"), "claims_written", true)
	}

	now := m.now()
	record := &models.AdminRecord{
		UID:       target.UID,
		Email:     target.Email,
		Claims:    merged.ToMap(),
		Role:      models.RoleAdmin,
		CreatedBy: actingAdminUID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !admin {
		record.Role = models.RoleRevoked
	}

	if err := m.records.Put(ctx, record); err != nil {
		partial := services.ErrPartialFailure.Wrap(services.WrapPersistence(err)).
			WithDetail("target_uid", target.UID).
			WithDetail("claims", merged.ToMap())
		m.logger.Error("administrator record write failed after claim change",
			zap.String("target_uid", target.UID),
			zap.String("actor_uid", actingAdminUID),
			zap.Bool("admin", admin),
			zap.String("request_id", audit.RequestInfoFromContext(ctx).RequestID),
			zap.Error(err))
		return merged, partial
	}

	return merged, nil
}

func (m *Manager) getUser(ctx context.Context, uid string) (*models.Identity, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, services.ErrInvalidInput.WithMessage("uid is required").WithDetail("field", "uid")
	}
	var ident *models.Identity
	err := m.call(ctx, "get_user", func(ctx context.Context) error {
		var err error
		ident, err = m.identity.GetUser(ctx, uid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ident, nil
}

// call runs one identity provider operation under the configured timeout and
// classifies its error.
func (m *Manager) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	started := time.Now()
	err := fn(callCtx)
	m.metrics.IdentityCall(op, started, err)
	if err == nil {
		return nil
	}

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(err, context.DeadlineExceeded)
	}
	m.logger.Warn("identity provider call failed",
		zap.String("op", op),
		zap.String("request_id", audit.RequestInfoFromContext(ctx).RequestID),
		zap.Error(err))
	return services.FromIdentityError(err)
}

// finish records the audit entry, metric and log line for a claim change attempt.
func (m *Manager) finish(ctx context.Context, op string, action models.AuditAction, actorUID, targetUID string, err error) {
	outcome := outcomeOf(err)
	m.metrics.ClaimChange(op, string(outcome))

	entry := models.NewAuditLog(action, actorUID, targetUID, outcome)
	if err != nil {
		entry.WithReason(err.Error())
		for k, v := range services.GetErrorDetails(err) {
			entry.WithDetail(k, v)
		}
	}
	m.emit(ctx, entry)

	if err == nil {
		m.logger.Info("admin claim change applied",
			zap.String("op", op),
			zap.String("target_uid", targetUID),
			zap.String("actor_uid", actorUID))
	}
}

func (m *Manager) emit(ctx context.Context, entry *models.AuditLog) {
	if m.audit == nil {
		return
	}
	info := audit.RequestInfoFromContext(ctx)
	entry.WithRequest(info.RequestID, info.IPAddress, info.UserAgent)
	if err := m.audit.LogAsync(entry); err != nil {
		m.logger.Warn("audit entry not recorded",
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}

func outcomeOf(err error) models.AuditOutcome {
	switch {
	case err == nil:
		return models.OutcomeSuccess
	case services.IsPartialFailure(err):
		return models.OutcomePartialFailure
	case services.IsForbiddenError(err):
		return models.OutcomeDenied
	default:
		return models.OutcomeFailure
	}
}

// withDetail returns a copy of the domain error in err with key set.
func withDetail(err error, key string, value interface{}) error {
	var de *services.DomainError
	if !errors.As(err, &de) {
		return err
	}
	return de.Wrap(de.Err).WithDetail(key, value)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := utils.ValidateEmail(email); err != nil {
		return "", services.ErrInvalidEmail.Wrap(err).WithDetail("field", "email")
	}
	return email, nil
}

func uidOf(ident *models.Identity) string {
	if ident == nil {
		return ""
	}
	return ident.UID
}
