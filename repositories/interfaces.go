package repositories

import (
	"context"
	"errors"

	"github.com/teteocan/aurora-admin/models"
)

// ErrNotFound is returned by Get-style operations when no row exists for the key
var ErrNotFound = errors.New("record not found")

// TransactionManager opens transactions. Repositories join one through WithTx.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction is committed or rolled back by whoever began it
type Transaction interface {
	Commit() error
	Rollback() error
}

// AdminRecordRepository stores administrator metadata documents keyed by UID
type AdminRecordRepository interface {
	// Get returns ErrNotFound when no record exists for uid
	Get(ctx context.Context, uid string) (*models.AdminRecord, error)

	// Put inserts or replaces the record. created_at and created_by of an
	// existing record are kept.
	Put(ctx context.Context, record *models.AdminRecord) error

	// Create inserts the record only if none exists and reports whether it did
	Create(ctx context.Context, record *models.AdminRecord) (bool, error)

	// List returns records ordered by creation time
	List(ctx context.Context, limit, offset int) ([]*models.AdminRecord, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AdminRecordRepository
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByTargetUID retrieves audit logs about one user, newest first
	GetByTargetUID(ctx context.Context, targetUID string, limit, offset int) ([]*models.AuditLog, error)

	// List retrieves audit logs, newest first
	List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// BankInfoRepository stores psychologist banking documents keyed by psychologist UID
type BankInfoRepository interface {
	// Get returns ErrNotFound when no document exists
	Get(ctx context.Context, psychologistID string) (*models.BankInfo, error)

	// Put inserts or replaces the document
	Put(ctx context.Context, info *models.BankInfo) error

	// Delete returns ErrNotFound when no document exists
	Delete(ctx context.Context, psychologistID string) error

	// List returns documents ordered by psychologist ID
	List(ctx context.Context, limit, offset int) ([]*models.BankInfo, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) BankInfoRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	AdminRecords AdminRecordRepository
	AuditLogs    AuditRepository
	BankInfo     BankInfoRepository
}
