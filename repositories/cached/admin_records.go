// Package cached provides read-through caching decorators for repositories.
package cached

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
)

// AdminRecords caches administrator records by UID. Records are display
// metadata only; no access decision reads from this cache.
type AdminRecords struct {
	inner repositories.AdminRecordRepository
	c     *gocache.Cache

	// inside a transaction writes may roll back, so entries are dropped instead of set
	invalidateOnly bool
}

var _ repositories.AdminRecordRepository = (*AdminRecords)(nil)

// NewAdminRecords wraps inner with a cache of the given TTL
func NewAdminRecords(inner repositories.AdminRecordRepository, ttl time.Duration) *AdminRecords {
	return &AdminRecords{inner: inner, c: gocache.New(ttl, time.Minute)}
}

// Get serves from cache when possible. Absent records are not cached.
func (a *AdminRecords) Get(ctx context.Context, uid string) (*models.AdminRecord, error) {
	if v, ok := a.c.Get(uid); ok {
		if record, ok := v.(*models.AdminRecord); ok {
			return clone(record), nil
		}
	}

	record, err := a.inner.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	a.c.SetDefault(uid, clone(record))
	return record, nil
}

// Put writes through and refreshes the entry
func (a *AdminRecords) Put(ctx context.Context, record *models.AdminRecord) error {
	if err := a.inner.Put(ctx, record); err != nil {
		a.c.Delete(record.UID)
		return err
	}
	// the stored row keeps its original creation fields, so re-read lazily
	a.c.Delete(record.UID)
	return nil
}

// Create writes through and caches the record when it was inserted
func (a *AdminRecords) Create(ctx context.Context, record *models.AdminRecord) (bool, error) {
	created, err := a.inner.Create(ctx, record)
	if err != nil {
		return false, err
	}
	if created && !a.invalidateOnly {
		a.c.SetDefault(record.UID, clone(record))
	} else {
		a.c.Delete(record.UID)
	}
	return created, nil
}

// List is never cached
func (a *AdminRecords) List(ctx context.Context, limit, offset int) ([]*models.AdminRecord, error) {
	return a.inner.List(ctx, limit, offset)
}

// WithTx returns a decorator over the transaction-bound repository sharing this cache
func (a *AdminRecords) WithTx(tx repositories.Transaction) repositories.AdminRecordRepository {
	return &AdminRecords{inner: a.inner.WithTx(tx), c: a.c, invalidateOnly: true}
}

// Invalidate drops the cached entry for uid
func (a *AdminRecords) Invalidate(uid string) {
	a.c.Delete(uid)
}

func clone(r *models.AdminRecord) *models.AdminRecord {
	out := *r
	out.Claims = make(map[string]interface{}, len(r.Claims))
	for k, v := range r.Claims {
		out.Claims[k] = v
	}
	return &out
}
