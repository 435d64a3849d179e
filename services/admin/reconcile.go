package admin

import (
	"context"
	"errors"
	"time"

	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
	"github.com/teteocan/aurora-admin/services"
)

// Drift reasons reported by Reconcile
const (
	DriftRecordMissing = "record_missing" // claim admin, no record
	DriftRecordStale   = "record_stale"   // record disagrees with the claim
)

// ReconcileReport compares the identity provider's admin claim with the stored record
type ReconcileReport struct {
	UID              string           `json:"uid"`
	Email            string           `json:"email"`
	HasAdminClaim    bool             `json:"has_admin_claim"`
	HasRecord        bool             `json:"has_record"`
	RecordRole       models.AdminRole `json:"record_role,omitempty"`
	RecordClaimAdmin bool             `json:"record_claim_admin"`
	InSync           bool             `json:"in_sync"`
	Drift            string           `json:"drift,omitempty"`
	CheckedAt        time.Time        `json:"checked_at"`
}

// Reconcile reads both sides for uid and reports whether they agree. It writes nothing.
func (m *Manager) Reconcile(ctx context.Context, uid string) (*ReconcileReport, error) {
	ident, err := m.getUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return m.reconcile(ctx, ident)
}

// ReconcileByEmail is Reconcile for the user registered under email
func (m *Manager) ReconcileByEmail(ctx context.Context, email string) (*ReconcileReport, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var ident *models.Identity
	err = m.call(ctx, "get_user_by_email", func(ctx context.Context) error {
		var err error
		ident, err = m.identity.GetUserByEmail(ctx, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m.reconcile(ctx, ident)
}

// Repair rewrites the stored record from the identity provider's current claims.
// The claim itself is never modified. A user with no admin claim and no record is
// left untouched.
func (m *Manager) Repair(ctx context.Context, uid, actingAdminUID string) (*ReconcileReport, error) {
	ident, err := m.getUser(ctx, uid)
	if err != nil {
		m.finish(ctx, opRepair, models.AuditActionReconcile, actingAdminUID, uid, err)
		return nil, err
	}

	before, err := m.reconcile(ctx, ident)
	if err != nil {
		m.finish(ctx, opRepair, models.AuditActionReconcile, actingAdminUID, uid, err)
		return nil, err
	}
	if before.InSync {
		return before, nil
	}

	now := m.now()
	record := models.NewAdminRecord(ident, actingAdminUID, now)
	if !ident.Claims.IsAdmin() {
		record.Role = models.RoleRevoked
	}
	if err := m.records.Put(ctx, record); err != nil {
		err = services.WrapPersistence(err)
		m.finish(ctx, opRepair, models.AuditActionReconcile, actingAdminUID, uid, err)
		return nil, err
	}
	m.finish(ctx, opRepair, models.AuditActionReconcile, actingAdminUID, uid, nil)

	return m.reconcile(ctx, ident)
}

func (m *Manager) reconcile(ctx context.Context, ident *models.Identity) (*ReconcileReport, error) {
	report := &ReconcileReport{
		UID:           ident.UID,
		Email:         ident.Email,
		HasAdminClaim: ident.Claims.IsAdmin(),
		CheckedAt:     m.now(),
	}

	record, err := m.records.Get(ctx, ident.UID)
	switch {
	case err == nil:
		report.HasRecord = true
		report.RecordRole = record.Role
		report.RecordClaimAdmin = record.SnapshotClaims().IsAdmin()
	case errors.Is(err, repositories.ErrNotFound):
	default:
		return nil, services.WrapPersistence(err)
	}

	report.Drift = driftOf(report)
	report.InSync = report.Drift == ""
	return report, nil
}

func driftOf(r *ReconcileReport) string {
	if !r.HasRecord {
		if r.HasAdminClaim {
			return DriftRecordMissing
		}
		return ""
	}
	recordAdmin := r.RecordRole == models.RoleAdmin && r.RecordClaimAdmin
	if recordAdmin != r.HasAdminClaim {
		return DriftRecordStale
	}
	return ""
}
