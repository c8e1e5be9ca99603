package jwtutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/expert-gateway/models"
)

// BearerPrefix is the scheme marker expected in the Authorization header
const BearerPrefix = "Bearer "

var (
	// ErrMalformedBearer is returned when the Authorization header lacks the Bearer scheme
	ErrMalformedBearer = errors.New("authorization header is not a bearer credential")

	// ErrInvalidSignature is returned for tampered signatures and structurally broken tokens
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrUnsupportedToken is returned for signing algorithms other than HMAC
	ErrUnsupportedToken = errors.New("unsupported token")

	// ErrMalformedToken is returned for any other parsing or claim failure
	ErrMalformedToken = errors.New("malformed token")
)

// Config holds configuration for Validator
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

// Validator verifies HMAC-signed tokens against a fixed secret.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewValidator creates a new token validator
func NewValidator(cfg Config) (*Validator, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}

	opts := []jwt.ParserOption{jwt.WithLeeway(cfg.Leeway)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Validator{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		parser: jwt.NewParser(opts...),
	}, nil
}

// SubstringToken strips the Bearer scheme from an Authorization header value
func (v *Validator) SubstringToken(header string) (string, error) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", ErrMalformedBearer
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return "", ErrMalformedBearer
	}
	return token, nil
}

// ExtractClaims verifies signature and expiry and returns the raw claims
func (v *Validator) ExtractClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

// ValidateToken validates a token and returns parsed claims
func (v *Validator) ValidateToken(_ context.Context, tokenString string) (*ParsedClaims, error) {
	claims, err := v.ExtractClaims(tokenString)
	if err != nil {
		return nil, err
	}
	return parseClaims(claims)
}

// Sign issues an HS256 token for the given identity.
// Used for fixtures and local tooling; the gateway itself never issues tokens.
func (v *Validator) Sign(userID int64, email string, role models.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    email,
		UserRole: string(role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (v *Validator) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("%w: signing method %v", ErrUnsupportedToken, token.Header["alg"])
	}
	return v.secret, nil
}

// classify maps golang-jwt errors onto the package's failure kinds.
// Signatures are checked before claims, so a tampered expired token is invalid, not expired.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, ErrUnsupportedToken), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrUnsupportedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
