package models

import (
	"time"
)

// AdminRole is the role stored on an administrator record
type AdminRole string

const (
	RoleAdmin   AdminRole = "admin"
	RoleRevoked AdminRole = "revoked"
)

// AdminRecord is the persisted metadata document for an administrator.
// It is a snapshot for display and audit; authorization never reads it.
type AdminRecord struct {
	UID       string                 `json:"uid" db:"uid"`
	Email     string                 `json:"email" db:"email"`
	Claims    map[string]interface{} `json:"custom_claims" db:"custom_claims"`
	Role      AdminRole              `json:"role" db:"role"`
	CreatedBy string                 `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the AdminRecord model
func (AdminRecord) TableName() string {
	return "administrators"
}

// NewAdminRecord creates a record snapshot for identity
func NewAdminRecord(identity *Identity, createdBy string, now time.Time) *AdminRecord {
	return &AdminRecord{
		UID:       identity.UID,
		Email:     identity.Email,
		Claims:    identity.Claims.ToMap(),
		Role:      RoleAdmin,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SnapshotClaims decodes the stored claim snapshot
func (r *AdminRecord) SnapshotClaims() Claims {
	return ClaimsFromMap(r.Claims)
}

// IsActive returns true if the record describes a current administrator
func (r *AdminRecord) IsActive() bool {
	return r.Role == RoleAdmin
}
