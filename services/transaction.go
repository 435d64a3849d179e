package services

import (
	"context"
	"fmt"

	"github.com/teteocan/aurora-admin/repositories"
)

// WithTransaction runs fn inside a transaction, committing when fn returns nil.
//
// Errors returned by fn are passed through unchanged after a successful
// rollback, so domain errors keep their type. Failures of the transaction
// itself (begin, commit, rollback) are reported as ErrPersistence.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return WrapPersistence(fmt.Errorf("begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return WrapPersistence(fmt.Errorf("rollback after %v: %w", err, rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return WrapPersistence(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
