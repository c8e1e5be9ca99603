package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAccessPolicy(t *testing.T) {
	p := DefaultAccessPolicy()

	tests := []struct {
		path string
		want Requirement
	}{
		{"/auth/login", RequirePublic},
		{"/auth", RequirePublic},
		{"/admin/users/1", RequireAdmin},
		{"/admin", RequireAdmin},
		{"/todos", RequireAuthenticated},
		{"/users/me", RequireAuthenticated},
		{"/", RequireAuthenticated},
		{"/api/auth/login", RequireAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, p.RequirementFor(tt.path))
		})
	}
}

func TestNewAccessPolicy(t *testing.T) {
	t.Run("custom prefixes", func(t *testing.T) {
		p, err := NewAccessPolicy([]string{"/auth", "/public"}, "/ops")
		require.NoError(t, err)

		assert.True(t, p.IsPublic("/public/docs"))
		assert.True(t, p.IsAdminPath("/ops/flags"))
		assert.False(t, p.IsAdminPath("/admin/users"))
		assert.Equal(t, "/ops", p.AdminPrefix())
	})

	t.Run("no public prefixes", func(t *testing.T) {
		p, err := NewAccessPolicy(nil, "/admin")
		require.NoError(t, err)
		assert.Equal(t, RequireAuthenticated, p.RequirementFor("/auth/login"))
	})

	invalid := []struct {
		name   string
		public []string
		admin  string
	}{
		{"empty admin prefix", []string{"/auth"}, ""},
		{"root admin prefix", []string{"/auth"}, "/"},
		{"relative admin prefix", []string{"/auth"}, "admin"},
		{"relative public prefix", []string{"auth"}, "/admin"},
		{"root public prefix", []string{"/"}, "/admin"},
		{"public shadows admin", []string{"/adm"}, "/admin"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAccessPolicy(tt.public, tt.admin)
			assert.Error(t, err)
		})
	}
}

func TestAccessPolicy_Immutable(t *testing.T) {
	prefixes := []string{"/auth"}
	p, err := NewAccessPolicy(prefixes, "/admin")
	require.NoError(t, err)

	prefixes[0] = "/todos"
	assert.False(t, p.IsPublic("/todos"))

	got := p.PublicPrefixes()
	got[0] = "/todos"
	assert.False(t, p.IsPublic("/todos"))
	assert.True(t, p.IsPublic("/auth/login"))
}

func TestEngine_Evaluate(t *testing.T) {
	engine := NewEngine(DefaultAccessPolicy())

	tests := []struct {
		name    string
		path    string
		role    string
		allowed bool
		req     Requirement
	}{
		{"user on resource path", "/todos", "USER", true, RequireAuthenticated},
		{"admin on resource path", "/todos", "ADMIN", true, RequireAuthenticated},
		{"admin on admin path", "/admin/users/1", "ADMIN", true, RequireAdmin},
		{"user on admin path", "/admin/users/1", "USER", false, RequireAdmin},
		{"lower case admin on admin path", "/admin/users/1", "admin", false, RequireAdmin},
		{"unknown role on resource path", "/todos", "GUEST", true, RequireAuthenticated},
		{"empty role on admin path", "/admin", "", false, RequireAdmin},
		{"public path", "/auth/login", "", true, RequirePublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Evaluate(tt.path, tt.role)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.req, d.Requirement)
			if !tt.allowed {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestRequirement_String(t *testing.T) {
	assert.Equal(t, "public", RequirePublic.String())
	assert.Equal(t, "authenticated", RequireAuthenticated.String())
	assert.Equal(t, "admin", RequireAdmin.String())
	assert.Equal(t, "unknown", Requirement(42).String())
}
