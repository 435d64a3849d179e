package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/teteocan/aurora-admin/repositories"
)

type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTransaction) Rollback() error {
	return m.Called().Error(0)
}

func setupTx(t *testing.T) (context.Context, *MockTransactionManager, *MockTransaction) {
	t.Helper()
	ctx := context.Background()
	txMgr := new(MockTransactionManager)
	tx := new(MockTransaction)
	txMgr.On("Begin", ctx).Return(tx, nil)
	t.Cleanup(func() {
		txMgr.AssertExpectations(t)
		tx.AssertExpectations(t)
	})
	return ctx, txMgr, tx
}

func TestWithTransaction_Commits(t *testing.T) {
	ctx, txMgr, tx := setupTx(t)
	tx.On("Commit").Return(nil)

	var seen repositories.Transaction
	err := WithTransaction(ctx, txMgr, func(ctx context.Context, got repositories.Transaction) error {
		seen = got
		return nil
	})

	require.NoError(t, err)
	assert.Same(t, tx, seen)
	tx.AssertNotCalled(t, "Rollback")
}

func TestWithTransaction_DomainErrorPassesThrough(t *testing.T) {
	ctx, txMgr, tx := setupTx(t)
	tx.On("Rollback").Return(nil)

	notFound := ErrBankInfoNotFound.Wrap(repositories.ErrNotFound)
	err := WithTransaction(ctx, txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		return notFound
	})

	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	tx.AssertNotCalled(t, "Commit")
}

func TestWithTransaction_BeginError(t *testing.T) {
	ctx := context.Background()
	txMgr := new(MockTransactionManager)
	txMgr.On("Begin", ctx).Return(nil, errors.New("connection refused"))

	called := false
	err := WithTransaction(ctx, txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, CodePersistence, GetErrorCode(err))
	assert.Contains(t, err.Error(), "connection refused")
	txMgr.AssertExpectations(t)
}

func TestWithTransaction_CommitError(t *testing.T) {
	ctx, txMgr, tx := setupTx(t)
	tx.On("Commit").Return(errors.New("serialization failure"))

	err := WithTransaction(ctx, txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, CodePersistence, GetErrorCode(err))
	assert.Contains(t, err.Error(), "serialization failure")
}

func TestWithTransaction_RollbackError(t *testing.T) {
	ctx, txMgr, tx := setupTx(t)
	tx.On("Rollback").Return(errors.New("connection reset"))

	err := WithTransaction(ctx, txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		return ErrIdentityNotFound
	})

	require.Error(t, err)
	assert.Equal(t, CodePersistence, GetErrorCode(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWithTransaction_PanicRollsBack(t *testing.T) {
	ctx, txMgr, tx := setupTx(t)
	tx.On("Rollback").Return(nil)

	assert.PanicsWithValue(t, "boom", func() {
		_ = WithTransaction(ctx, txMgr, func(ctx context.Context, _ repositories.Transaction) error {
			panic("boom")
		})
	})
}
