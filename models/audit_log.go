package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionAdminGrant     AuditAction = "admin.grant"
	AuditActionAdminRevoke    AuditAction = "admin.revoke"
	AuditActionAdminRegister  AuditAction = "admin.register"
	AuditActionRecordCreated  AuditAction = "admin.record_created"
	AuditActionReconcile      AuditAction = "admin.reconcile"
	AuditActionAccessDenied   AuditAction = "access.denied"
	AuditActionBankInfoDelete AuditAction = "bank_info.delete"
)

// AuditOutcome is the result recorded for an audited action
type AuditOutcome string

const (
	OutcomeSuccess        AuditOutcome = "success"
	OutcomeFailure        AuditOutcome = "failure"
	OutcomePartialFailure AuditOutcome = "partial_failure"
	OutcomeDenied         AuditOutcome = "denied"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	Action    AuditAction            `json:"action" db:"action"`
	ActorUID  string                 `json:"actor_uid" db:"actor_uid"`
	TargetUID string                 `json:"target_uid,omitempty" db:"target_uid"`
	Outcome   AuditOutcome           `json:"outcome" db:"outcome"`
	Reason    string                 `json:"reason,omitempty" db:"reason"`
	RequestID string                 `json:"request_id,omitempty" db:"request_id"`
	IPAddress string                 `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string                 `json:"user_agent,omitempty" db:"user_agent"`
	Details   map[string]interface{} `json:"details,omitempty" db:"details"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, actorUID, targetUID string, outcome AuditOutcome) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		Action:    action,
		ActorUID:  actorUID,
		TargetUID: targetUID,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

// WithReason sets the reason
func (a *AuditLog) WithReason(reason string) *AuditLog {
	a.Reason = reason
	return a
}

// WithDetail adds a single detail entry
func (a *AuditLog) WithDetail(key string, value interface{}) *AuditLog {
	if a.Details == nil {
		a.Details = make(map[string]interface{})
	}
	a.Details[key] = value
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
