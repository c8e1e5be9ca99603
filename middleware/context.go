package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/expert-gateway/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// AuthUserKey is the context key for the authenticated caller
	AuthUserKey contextKey = "auth_user"
)

// AuthUser is the claim set attached to a request after its credential validates
type AuthUser struct {
	UserID int64           `json:"userId"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
}

// IsAdmin reports whether the caller holds the ADMIN role
func (u *AuthUser) IsAdmin() bool {
	return u != nil && u.Role.IsAdmin()
}

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// WithAuthUser attaches the authenticated caller to the context
func WithAuthUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, AuthUserKey, user)
}

// GetAuthUserFromContext retrieves the authenticated caller from context.
// Returns nil on public paths and before the gate has run.
func GetAuthUserFromContext(ctx context.Context) *AuthUser {
	if val := ctx.Value(AuthUserKey); val != nil {
		if user, ok := val.(*AuthUser); ok {
			return user
		}
	}
	return nil
}
