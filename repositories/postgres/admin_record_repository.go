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

// AdminRecordRepository implements the repositories.AdminRecordRepository interface
type AdminRecordRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewAdminRecordRepository creates a new administrator record repository
func NewAdminRecordRepository(db *DB, logger *zap.Logger) repositories.AdminRecordRepository {
	return &AdminRecordRepository{
		db:     db,
		logger: logger,
	}
}

const adminRecordColumns = `uid, email, custom_claims, role, created_by, created_at, updated_at`

// Get retrieves a record by UID
func (r *AdminRecordRepository) Get(ctx context.Context, uid string) (*models.AdminRecord, error) {
	query := `SELECT ` + adminRecordColumns + ` FROM administrators WHERE uid = $1`

	row := executorFor(r.db, r.tx).QueryRowContext(ctx, query, uid)
	record, err := scanAdminRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get administrator record: %w", err)
	}

	return record, nil
}

// Put inserts or replaces a record, keeping created_at and created_by of an existing row
func (r *AdminRecordRepository) Put(ctx context.Context, record *models.AdminRecord) error {
	claims, err := marshalClaims(record.Claims)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO administrators (` + adminRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			custom_claims = EXCLUDED.custom_claims,
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
	`

	_, err = executorFor(r.db, r.tx).ExecContext(ctx, query,
		record.UID,
		record.Email,
		claims,
		record.Role,
		record.CreatedBy,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put administrator record: %w", err)
	}

	r.logger.Debug("administrator record written", zap.String("uid", record.UID))
	return nil
}

// Create inserts the record unless one already exists for the UID
func (r *AdminRecordRepository) Create(ctx context.Context, record *models.AdminRecord) (bool, error) {
	claims, err := marshalClaims(record.Claims)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO administrators (` + adminRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (uid) DO NOTHING
	`

	result, err := executorFor(r.db, r.tx).ExecContext(ctx, query,
		record.UID,
		record.Email,
		claims,
		record.Role,
		record.CreatedBy,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create administrator record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 1 {
		r.logger.Debug("administrator record created", zap.String("uid", record.UID))
	}
	return rows == 1, nil
}

// List retrieves records ordered by creation time
func (r *AdminRecordRepository) List(ctx context.Context, limit, offset int) ([]*models.AdminRecord, error) {
	query := `
		SELECT ` + adminRecordColumns + `
		FROM administrators
		ORDER BY created_at ASC, uid ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := executorFor(r.db, r.tx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list administrator records: %w", err)
	}
	defer rows.Close()

	var records []*models.AdminRecord
	for rows.Next() {
		record, err := scanAdminRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan administrator record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating administrator records: %w", err)
	}

	return records, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *AdminRecordRepository) WithTx(tx repositories.Transaction) repositories.AdminRecordRepository {
	return &AdminRecordRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAdminRecord(row rowScanner) (*models.AdminRecord, error) {
	record := &models.AdminRecord{}
	var claims []byte

	if err := row.Scan(
		&record.UID,
		&record.Email,
		&claims,
		&record.Role,
		&record.CreatedBy,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}

	record.Claims = map[string]interface{}{}
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &record.Claims); err != nil {
			return nil, fmt.Errorf("failed to decode custom_claims: %w", err)
		}
	}
	return record, nil
}

func marshalClaims(claims map[string]interface{}) ([]byte, error) {
	if claims == nil {
		claims = map[string]interface{}{}
	}
	data, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custom_claims: %w", err)
	}
	return data, nil
}
