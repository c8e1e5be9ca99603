package repositories

import (
	"context"

	"github.com/upb/expert-gateway/models"
)

// AdminAccessRepository persists admin access records
type AdminAccessRepository interface {
	// Insert stores a new admin access record
	Insert(ctx context.Context, record *models.AdminAccessLog) error

	// List retrieves records newest first with pagination
	List(ctx context.Context, limit, offset int) ([]*models.AdminAccessLog, error)

	// GetByUserID retrieves records for a user, newest first, with pagination
	GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.AdminAccessLog, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int64, error)
}

// Repositories holds all repository instances
type Repositories struct {
	AdminAccessLogs AdminAccessRepository
}
