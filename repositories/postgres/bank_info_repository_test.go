package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
	"go.uber.org/zap"
)

func TestBankInfoRepository_GetAndPut(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBankInfoRepository(db, zap.NewNop())
	ctx := context.Background()

	info := &models.BankInfo{
		PsychologistID:    "psy-1",
		AccountHolderName: "Ana",
		BankName:          "BBVA",
		AccountType:       models.AccountTypeChecking,
		CLABE:             "012345678901234567",
		UpdatedAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO bank_info (.+) ON CONFLICT \\(psychologist_id\\) DO UPDATE").
		WithArgs("psy-1", sqlmock.AnyArg(), info.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Put(ctx, info))

	doc := []byte(`{"psychologist_id":"psy-1","account_holder_name":"Ana","bank_name":"BBVA","account_type":"checking","clabe":"012345678901234567","is_international":false,"updated_at":"2026-01-01T00:00:00Z"}`)
	mock.ExpectQuery("SELECT document FROM bank_info WHERE psychologist_id = \\$1").
		WithArgs("psy-1").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(doc))

	got, err := repo.Get(ctx, "psy-1")
	require.NoError(t, err)
	assert.Equal(t, info, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBankInfoRepository_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBankInfoRepository(db, zap.NewNop())

	mock.ExpectQuery("SELECT document FROM bank_info").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"document"}))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestBankInfoRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBankInfoRepository(db, zap.NewNop())
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM bank_info WHERE psychologist_id = \\$1").
		WithArgs("psy-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(ctx, "psy-1"))

	mock.ExpectExec("DELETE FROM bank_info").
		WithArgs("psy-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, "psy-1"), repositories.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBankInfoRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBankInfoRepository(db, zap.NewNop())

	mock.ExpectQuery("SELECT document FROM bank_info ORDER BY psychologist_id").
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow([]byte(`{"psychologist_id":"a"}`)).
			AddRow([]byte(`{"psychologist_id":"b"}`)))

	infos, err := repo.List(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].PsychologistID)
	assert.Equal(t, "b", infos[1].PsychologistID)
}
