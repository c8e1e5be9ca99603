package policy

import (
	"fmt"
	"strings"
)

const (
	DefaultPublicPrefix = "/auth"
	DefaultAdminPrefix  = "/admin"
)

// Requirement is the minimum standing a caller needs for a path
type Requirement int

const (
	// RequirePublic skips credential checks
	RequirePublic Requirement = iota
	// RequireAuthenticated accepts any validated caller
	RequireAuthenticated
	// RequireAdmin accepts only callers holding the ADMIN role
	RequireAdmin
)

// String returns a label suitable for logs and metrics
func (r Requirement) String() string {
	switch r {
	case RequirePublic:
		return "public"
	case RequireAuthenticated:
		return "authenticated"
	case RequireAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// AccessPolicy maps path prefixes to requirements. The zero value is not usable;
// construct with NewAccessPolicy or DefaultAccessPolicy.
type AccessPolicy struct {
	publicPrefixes []string
	adminPrefix    string
}

// NewAccessPolicy validates and builds an access policy.
// Prefixes are matched as plain string prefixes of the request path.
func NewAccessPolicy(publicPrefixes []string, adminPrefix string) (AccessPolicy, error) {
	if err := validPrefix(adminPrefix); err != nil {
		return AccessPolicy{}, fmt.Errorf("admin prefix: %w", err)
	}

	public := make([]string, 0, len(publicPrefixes))
	for _, prefix := range publicPrefixes {
		if err := validPrefix(prefix); err != nil {
			return AccessPolicy{}, fmt.Errorf("public prefix: %w", err)
		}
		if strings.HasPrefix(adminPrefix, prefix) {
			return AccessPolicy{}, fmt.Errorf("public prefix %q shadows admin prefix %q", prefix, adminPrefix)
		}
		public = append(public, prefix)
	}

	return AccessPolicy{
		publicPrefixes: public,
		adminPrefix:    adminPrefix,
	}, nil
}

// DefaultAccessPolicy returns {"/auth": public, "/admin": ADMIN, default: authenticated}
func DefaultAccessPolicy() AccessPolicy {
	return AccessPolicy{
		publicPrefixes: []string{DefaultPublicPrefix},
		adminPrefix:    DefaultAdminPrefix,
	}
}

// PublicPrefixes returns a copy of the public prefixes
func (p AccessPolicy) PublicPrefixes() []string {
	out := make([]string, len(p.publicPrefixes))
	copy(out, p.publicPrefixes)
	return out
}

// AdminPrefix returns the reserved admin prefix
func (p AccessPolicy) AdminPrefix() string {
	return p.adminPrefix
}

// IsPublic reports whether the path bypasses credential checks
func (p AccessPolicy) IsPublic(path string) bool {
	for _, prefix := range p.publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsAdminPath reports whether the path is under the reserved admin prefix
func (p AccessPolicy) IsAdminPath(path string) bool {
	return strings.HasPrefix(path, p.adminPrefix)
}

// RequirementFor resolves the requirement for a request path
func (p AccessPolicy) RequirementFor(path string) Requirement {
	switch {
	case p.IsPublic(path):
		return RequirePublic
	case p.IsAdminPath(path):
		return RequireAdmin
	default:
		return RequireAuthenticated
	}
}

func validPrefix(prefix string) error {
	if prefix == "" || prefix == "/" {
		return fmt.Errorf("prefix %q must name a path below the root", prefix)
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("prefix %q must start with '/'", prefix)
	}
	return nil
}
