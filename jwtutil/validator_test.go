package jwtutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/expert-gateway/models"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(Config{Secret: testSecret})
	require.NoError(t, err)
	return v
}

func signClaims(t *testing.T, method jwt.SigningMethod, claims jwt.Claims, key interface{}) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func userClaims(sub string, exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:    "a@b.com",
		UserRole: "USER",
	}
}

func TestNewValidator(t *testing.T) {
	t.Run("requires a secret", func(t *testing.T) {
		_, err := NewValidator(Config{})
		assert.Error(t, err)
	})

	t.Run("accepts a secret", func(t *testing.T) {
		v, err := NewValidator(Config{Secret: testSecret, Leeway: time.Second})
		require.NoError(t, err)
		assert.NotNil(t, v)
	})
}

func TestSubstringToken(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer token", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "extra whitespace", header: "Bearer   abc.def.ghi ", want: "abc.def.ghi"},
		{name: "missing scheme", header: "abc.def.ghi", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "lower case scheme", header: "bearer abc.def.ghi", wantErr: true},
		{name: "scheme only", header: "Bearer ", wantErr: true},
		{name: "empty", header: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.SubstringToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedBearer)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateToken(t *testing.T) {
	v := newTestValidator(t)
	ctx := context.Background()

	t.Run("valid token returns typed claims", func(t *testing.T) {
		token, err := v.Sign(1, "a@b.com", models.RoleUser, time.Hour)
		require.NoError(t, err)

		claims, err := v.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, int64(1), claims.UserID)
		assert.Equal(t, "a@b.com", claims.Email)
		assert.Equal(t, "USER", claims.Role)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
		assert.False(t, claims.IssuedAt.IsZero())
	})

	t.Run("role claim is passed through verbatim", func(t *testing.T) {
		c := userClaims("5", time.Now().Add(time.Hour))
		c.UserRole = "SUPERUSER"
		token := signClaims(t, jwt.SigningMethodHS256, c, testSecret)

		claims, err := v.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "SUPERUSER", claims.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := v.Sign(1, "a@b.com", models.RoleUser, -time.Minute)
		require.NoError(t, err)

		_, err = v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("leeway tolerates recent expiry", func(t *testing.T) {
		lenient, err := NewValidator(Config{Secret: testSecret, Leeway: time.Hour})
		require.NoError(t, err)
		token, err := lenient.Sign(1, "a@b.com", models.RoleUser, -time.Minute)
		require.NoError(t, err)

		_, err = lenient.ValidateToken(ctx, token)
		assert.NoError(t, err)
	})

	t.Run("tampered signature", func(t *testing.T) {
		token, err := v.Sign(1, "a@b.com", models.RoleUser, time.Hour)
		require.NoError(t, err)
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		forged := signClaims(t, jwt.SigningMethodHS256, userClaims("1", time.Now().Add(time.Hour)), []byte("another-secret-another-secret-xx"))
		tampered := parts[0] + "." + parts[1] + "." + strings.Split(forged, ".")[2]

		_, err = v.ValidateToken(ctx, tampered)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("signed with a different secret", func(t *testing.T) {
		token := signClaims(t, jwt.SigningMethodHS256, userClaims("1", time.Now().Add(time.Hour)), []byte("another-secret-another-secret-xx"))

		_, err := v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("expired token with bad signature is invalid", func(t *testing.T) {
		token := signClaims(t, jwt.SigningMethodHS256, userClaims("1", time.Now().Add(-time.Hour)), []byte("another-secret-another-secret-xx"))

		_, err := v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("structurally malformed token", func(t *testing.T) {
		_, err := v.ValidateToken(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unsigned token is unsupported", func(t *testing.T) {
		token := signClaims(t, jwt.SigningMethodNone, userClaims("1", time.Now().Add(time.Hour)), jwt.UnsafeAllowNoneSignatureType)

		_, err := v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrUnsupportedToken)
	})

	t.Run("RSA token is unsupported", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		token := signClaims(t, jwt.SigningMethodRS256, userClaims("1", time.Now().Add(time.Hour)), key)

		_, err = v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrUnsupportedToken)
	})

	t.Run("non integer subject is malformed", func(t *testing.T) {
		token := signClaims(t, jwt.SigningMethodHS256, userClaims("user-1", time.Now().Add(time.Hour)), testSecret)

		_, err := v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("missing subject is malformed", func(t *testing.T) {
		token := signClaims(t, jwt.SigningMethodHS256, userClaims("", time.Now().Add(time.Hour)), testSecret)

		_, err := v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("not yet valid token is malformed", func(t *testing.T) {
		c := userClaims("1", time.Now().Add(2*time.Hour))
		c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
		token := signClaims(t, jwt.SigningMethodHS256, c, testSecret)

		_, err := v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("classification is deterministic", func(t *testing.T) {
		token, err := v.Sign(1, "a@b.com", models.RoleUser, -time.Minute)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := v.ValidateToken(ctx, token)
			assert.ErrorIs(t, err, ErrTokenExpired)
		}
	})
}

func TestValidateToken_Issuer(t *testing.T) {
	v, err := NewValidator(Config{Secret: testSecret, Issuer: "expert-auth"})
	require.NoError(t, err)

	t.Run("matching issuer", func(t *testing.T) {
		token, err := v.Sign(3, "c@d.com", models.RoleAdmin, time.Hour)
		require.NoError(t, err)

		claims, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "ADMIN", claims.Role)
	})

	t.Run("foreign issuer is malformed", func(t *testing.T) {
		c := userClaims("3", time.Now().Add(time.Hour))
		c.Issuer = "someone-else"
		token := signClaims(t, jwt.SigningMethodHS256, c, testSecret)

		_, err := v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})
}
