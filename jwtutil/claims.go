package jwtutil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the claims carried by gateway tokens
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	UserRole string `json:"userRole"`
}

// ParsedClaims represents validated claims with typed fields.
// Role is kept verbatim; the access decision owns interpreting it.
type ParsedClaims struct {
	UserID    int64
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// parseClaims converts Claims to ParsedClaims
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrMalformedToken)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: sub is not an integer: %v", ErrMalformedToken, err)
	}

	parsed := &ParsedClaims{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.UserRole,
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}

	return parsed, nil
}
