package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/repositories"
	"go.uber.org/zap"
)

// BankInfoRepository implements the repositories.BankInfoRepository interface.
// Each document is stored whole in a JSONB column.
type BankInfoRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewBankInfoRepository creates a new bank info repository
func NewBankInfoRepository(db *DB, logger *zap.Logger) repositories.BankInfoRepository {
	return &BankInfoRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a document by psychologist ID
func (r *BankInfoRepository) Get(ctx context.Context, psychologistID string) (*models.BankInfo, error) {
	query := `SELECT document FROM bank_info WHERE psychologist_id = $1`

	var doc []byte
	err := executorFor(r.db, r.tx).QueryRowContext(ctx, query, psychologistID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bank info: %w", err)
	}

	return decodeBankInfo(doc)
}

// Put inserts or replaces a document
func (r *BankInfoRepository) Put(ctx context.Context, info *models.BankInfo) error {
	doc, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode bank info: %w", err)
	}

	query := `
		INSERT INTO bank_info (psychologist_id, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (psychologist_id) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := executorFor(r.db, r.tx).ExecContext(ctx, query, info.PsychologistID, doc, info.UpdatedAt); err != nil {
		return fmt.Errorf("failed to put bank info: %w", err)
	}

	r.logger.Debug("bank info written", zap.String("psychologist_id", info.PsychologistID))
	return nil
}

// Delete removes a document
func (r *BankInfoRepository) Delete(ctx context.Context, psychologistID string) error {
	query := `DELETE FROM bank_info WHERE psychologist_id = $1`

	result, err := executorFor(r.db, r.tx).ExecContext(ctx, query, psychologistID)
	if err != nil {
		return fmt.Errorf("failed to delete bank info: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("bank info deleted", zap.String("psychologist_id", psychologistID))
	return nil
}

// List retrieves documents ordered by psychologist ID
func (r *BankInfoRepository) List(ctx context.Context, limit, offset int) ([]*models.BankInfo, error) {
	query := `
		SELECT document
		FROM bank_info
		ORDER BY psychologist_id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := executorFor(r.db, r.tx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank info: %w", err)
	}
	defer rows.Close()

	var infos []*models.BankInfo
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan bank info: %w", err)
		}
		info, err := decodeBankInfo(doc)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bank info: %w", err)
	}

	return infos, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *BankInfoRepository) WithTx(tx repositories.Transaction) repositories.BankInfoRepository {
	return &BankInfoRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

func decodeBankInfo(doc []byte) (*models.BankInfo, error) {
	info := &models.BankInfo{}
	if err := json.Unmarshal(doc, info); err != nil {
		return nil, fmt.Errorf("failed to decode bank info: %w", err)
	}
	return info, nil
}
