// Package memory implements the repositories in process memory. It backs the
// development storage driver and tests; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
)

// NewRepositories creates a fresh set of in-memory repositories
func NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		AdminRecords: NewAdminRecords(),
		AuditLogs:    NewAuditLogs(),
		BankInfo:     NewBankInfo(),
	}
}

// AdminRecords is an in-memory AdminRecordRepository
type AdminRecords struct {
	mu      sync.RWMutex
	records map[string]models.AdminRecord
}

// NewAdminRecords creates an empty store
func NewAdminRecords() *AdminRecords {
	return &AdminRecords{records: make(map[string]models.AdminRecord)}
}

func (s *AdminRecords) Get(ctx context.Context, uid string) (*models.AdminRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyRecord(r), nil
}

func (s *AdminRecords) Put(ctx context.Context, record *models.AdminRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := *copyRecord(*record)
	if existing, ok := s.records[record.UID]; ok {
		next.CreatedAt = existing.CreatedAt
		next.CreatedBy = existing.CreatedBy
	}
	s.records[record.UID] = next
	return nil
}

func (s *AdminRecords) Create(ctx context.Context, record *models.AdminRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.UID]; ok {
		return false, nil
	}
	s.records[record.UID] = *copyRecord(*record)
	return true, nil
}

func (s *AdminRecords) List(ctx context.Context, limit, offset int) ([]*models.AdminRecord, error) {
	s.mu.RLock()
	all := make([]*models.AdminRecord, 0, len(s.records))
	for _, r := range s.records {
		all = append(all, copyRecord(r))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].UID < all[j].UID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return page(all, limit, offset), nil
}

func (s *AdminRecords) WithTx(tx repositories.Transaction) repositories.AdminRecordRepository {
	return s
}

// Len returns the number of stored records
func (s *AdminRecords) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// AuditLogs is an in-memory AuditRepository
type AuditLogs struct {
	mu   sync.RWMutex
	logs []models.AuditLog
}

// NewAuditLogs creates an empty store
func NewAuditLogs() *AuditLogs {
	return &AuditLogs{}
}

func (s *AuditLogs) Insert(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *log)
	return nil
}

func (s *AuditLogs) GetByTargetUID(ctx context.Context, targetUID string, limit, offset int) ([]*models.AuditLog, error) {
	return s.filter(func(l *models.AuditLog) bool { return l.TargetUID == targetUID }, limit, offset), nil
}

func (s *AuditLogs) List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return s.filter(func(*models.AuditLog) bool { return true }, limit, offset), nil
}

func (s *AuditLogs) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return s
}

// newest first
func (s *AuditLogs) filter(keep func(*models.AuditLog) bool, limit, offset int) []*models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AuditLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if keep(&l) {
			out = append(out, &l)
		}
	}
	return page(out, limit, offset)
}

// BankInfo is an in-memory BankInfoRepository
type BankInfo struct {
	mu   sync.RWMutex
	docs map[string]models.BankInfo
}

// NewBankInfo creates an empty store
func NewBankInfo() *BankInfo {
	return &BankInfo{docs: make(map[string]models.BankInfo)}
}

func (s *BankInfo) Get(ctx context.Context, psychologistID string) (*models.BankInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[psychologistID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &d, nil
}

func (s *BankInfo) Put(ctx context.Context, info *models.BankInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[info.PsychologistID] = *info
	return nil
}

func (s *BankInfo) Delete(ctx context.Context, psychologistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[psychologistID]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.docs, psychologistID)
	return nil
}

func (s *BankInfo) List(ctx context.Context, limit, offset int) ([]*models.BankInfo, error) {
	s.mu.RLock()
	out := make([]*models.BankInfo, 0, len(s.docs))
	for _, d := range s.docs {
		d := d
		out = append(out, &d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].PsychologistID < out[j].PsychologistID })
	return page(out, limit, offset), nil
}

func (s *BankInfo) WithTx(tx repositories.Transaction) repositories.BankInfoRepository {
	return s
}

// TransactionManager hands out no-op transactions; the memory stores
// apply each write immediately.
type TransactionManager struct{}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

func (TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return noopTx{}, nil
}

func copyRecord(r models.AdminRecord) *models.AdminRecord {
	claims := make(map[string]interface{}, len(r.Claims))
	for k, v := range r.Claims {
		claims[k] = v
	}
	r.Claims = claims
	return &r
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
