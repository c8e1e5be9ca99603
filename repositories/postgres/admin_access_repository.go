package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/expert-gateway/models"
	"github.com/upb/expert-gateway/repositories"
	"go.uber.org/zap"
)

const adminAccessColumns = `id, user_id, email, role, method, path, request_id, ip_address, user_agent, timestamp`

// AdminAccessRepository implements the repositories.AdminAccessRepository interface
type AdminAccessRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAdminAccessRepository creates a new admin access repository
func NewAdminAccessRepository(db *DB, logger *zap.Logger) repositories.AdminAccessRepository {
	return &AdminAccessRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new admin access record
func (r *AdminAccessRepository) Insert(ctx context.Context, record *models.AdminAccessLog) error {
	query := `
		INSERT INTO admin_access_logs (` + adminAccessColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Email,
		record.Role,
		record.Method,
		record.Path,
		record.RequestID,
		record.IPAddress,
		record.UserAgent,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert admin access log: %w", err)
	}

	r.logger.Debug("admin access log inserted",
		zap.String("id", record.ID.String()),
		zap.Int64("user_id", record.UserID))
	return nil
}

// List retrieves admin access records newest first
func (r *AdminAccessRepository) List(ctx context.Context, limit, offset int) ([]*models.AdminAccessLog, error) {
	query := `
		SELECT ` + adminAccessColumns + `
		FROM admin_access_logs
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`
	return r.query(ctx, query, limit, offset)
}

// GetByUserID retrieves admin access records for a user newest first
func (r *AdminAccessRepository) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.AdminAccessLog, error) {
	query := `
		SELECT ` + adminAccessColumns + `
		FROM admin_access_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.query(ctx, query, userID, limit, offset)
}

// Count returns the number of stored records
func (r *AdminAccessRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_access_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admin access logs: %w", err)
	}
	return count, nil
}

func (r *AdminAccessRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.AdminAccessLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin access logs: %w", err)
	}
	defer rows.Close()

	var records []*models.AdminAccessLog
	for rows.Next() {
		record, err := scanAdminAccessLog(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin access logs: %w", err)
	}

	return records, nil
}

func scanAdminAccessLog(rows *sql.Rows) (*models.AdminAccessLog, error) {
	record := &models.AdminAccessLog{}
	var requestID, ipAddress, userAgent sql.NullString

	err := rows.Scan(
		&record.ID,
		&record.UserID,
		&record.Email,
		&record.Role,
		&record.Method,
		&record.Path,
		&requestID,
		&ipAddress,
		&userAgent,
		&record.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan admin access log: %w", err)
	}

	record.RequestID = requestID.String
	record.IPAddress = ipAddress.String
	record.UserAgent = userAgent.String
	return record, nil
}
