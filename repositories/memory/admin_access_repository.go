// Package memory provides in-process repositories used when no database is configured.
package memory

import (
	"context"
	"sync"

	"github.com/upb/expert-gateway/models"
	"github.com/upb/expert-gateway/repositories"
)

// DefaultCapacity bounds the number of records kept in memory
const DefaultCapacity = 1000

// AdminAccessRepository keeps the most recent records in a fixed-size ring
type AdminAccessRepository struct {
	mu      sync.RWMutex
	records []*models.AdminAccessLog
	next    int
	full    bool
}

// NewAdminAccessRepository creates a ring holding at most capacity records
func NewAdminAccessRepository(capacity int) repositories.AdminAccessRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &AdminAccessRepository{
		records: make([]*models.AdminAccessLog, capacity),
	}
}

// Insert stores a copy of record, evicting the oldest once full
func (r *AdminAccessRepository) Insert(_ context.Context, record *models.AdminAccessLog) error {
	stored := *record

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.next] = &stored
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// List returns records newest first
func (r *AdminAccessRepository) List(_ context.Context, limit, offset int) ([]*models.AdminAccessLog, error) {
	return r.collect(limit, offset, func(*models.AdminAccessLog) bool { return true }), nil
}

// GetByUserID returns records for userID newest first
func (r *AdminAccessRepository) GetByUserID(_ context.Context, userID int64, limit, offset int) ([]*models.AdminAccessLog, error) {
	return r.collect(limit, offset, func(rec *models.AdminAccessLog) bool { return rec.UserID == userID }), nil
}

// Count returns the number of retained records
func (r *AdminAccessRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(r.size()), nil
}

func (r *AdminAccessRepository) size() int {
	if r.full {
		return len(r.records)
	}
	return r.next
}

func (r *AdminAccessRepository) collect(limit, offset int, match func(*models.AdminAccessLog) bool) []*models.AdminAccessLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*models.AdminAccessLog{}
	skipped := 0
	n := r.size()
	for i := 1; i <= n && (limit <= 0 || len(out) < limit); i++ {
		idx := (r.next - i + len(r.records)) % len(r.records)
		rec := r.records[idx]
		if !match(rec) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}
	return out
}
