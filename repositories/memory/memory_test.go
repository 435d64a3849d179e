package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
)

func TestAdminRecords_PutKeepsCreationFields(t *testing.T) {
	ctx := context.Background()
	store := NewAdminRecords()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, &models.AdminRecord{UID: "u", CreatedBy: "first", CreatedAt: created, Role: models.RoleAdmin}))
	require.NoError(t, store.Put(ctx, &models.AdminRecord{UID: "u", CreatedBy: "second", CreatedAt: created.Add(time.Hour), Role: models.RoleRevoked}))

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "first", got.CreatedBy)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, models.RoleRevoked, got.Role)
}

func TestAdminRecords_CreateIsInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewAdminRecords()

	created, err := store.Create(ctx, &models.AdminRecord{UID: "u", Email: "one"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Create(ctx, &models.AdminRecord{UID: "u", Email: "two"})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "one", got.Email)
}

func TestAdminRecords_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewAdminRecords()
	require.NoError(t, store.Put(ctx, &models.AdminRecord{UID: "u", Claims: map[string]interface{}{"admin": true}}))

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	got.Claims["admin"] = false

	again, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, true, again.Claims["admin"])

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestAuditLogs_NewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	store := NewAuditLogs()
	for _, target := range []string{"a", "b", "a", "a"} {
		require.NoError(t, store.Insert(ctx, models.NewAuditLog(models.AuditActionAdminGrant, "actor", target, models.OutcomeSuccess).WithReason(target)))
	}

	logs, err := store.GetByTargetUID(ctx, "a", 2, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	all, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a", all[0].TargetUID)
	assert.Equal(t, "b", all[2].TargetUID)

	none, err := store.List(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBankInfo_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewBankInfo()

	require.NoError(t, store.Put(ctx, &models.BankInfo{PsychologistID: "b", BankName: "X"}))
	require.NoError(t, store.Put(ctx, &models.BankInfo{PsychologistID: "a", BankName: "Y"}))

	list, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].PsychologistID)

	require.NoError(t, store.Delete(ctx, "a"))
	assert.ErrorIs(t, store.Delete(ctx, "a"), repositories.ErrNotFound)

	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
