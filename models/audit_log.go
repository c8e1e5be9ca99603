package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminAccessLog is the audit trail entry written for every allowed admin-path request
type AdminAccessLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	Role      UserRole  `json:"role" db:"role"`
	Method    string    `json:"method" db:"method"`
	Path      string    `json:"path" db:"path"`
	RequestID string    `json:"request_id" db:"request_id"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AdminAccessLog model
func (AdminAccessLog) TableName() string {
	return "admin_access_logs"
}

// NewAdminAccessLog creates a record stamped with the current time
func NewAdminAccessLog(method, path string) *AdminAccessLog {
	return &AdminAccessLog{
		ID:        uuid.New(),
		Method:    method,
		Path:      path,
		Timestamp: time.Now(),
	}
}

// WithUser sets the identity that performed the access
func (a *AdminAccessLog) WithUser(userID int64, email string, role UserRole) *AdminAccessLog {
	a.UserID = userID
	a.Email = email
	a.Role = role
	return a
}

// WithRequest sets request metadata
func (a *AdminAccessLog) WithRequest(requestID, ipAddress, userAgent string) *AdminAccessLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
