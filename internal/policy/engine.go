package policy

import "github.com/upb/expert-gateway/models"

// Engine evaluates the access policy for an authenticated caller
type Engine struct {
	policy AccessPolicy
}

// Decision is the outcome of evaluating a path for a role
type Decision struct {
	Allowed     bool
	Requirement Requirement
	Reason      string
}

// NewEngine creates an engine over an immutable policy
func NewEngine(policy AccessPolicy) *Engine {
	return &Engine{policy: policy}
}

// Policy returns the policy the engine evaluates
func (e *Engine) Policy() AccessPolicy {
	return e.policy
}

// Evaluate decides whether role may access path.
// role is compared verbatim; only the exact value "ADMIN" satisfies RequireAdmin.
func (e *Engine) Evaluate(path, role string) Decision {
	requirement := e.policy.RequirementFor(path)

	if requirement == RequireAdmin && role != models.RoleAdmin.String() {
		return Decision{
			Allowed:     false,
			Requirement: requirement,
			Reason:      "admin role required",
		}
	}

	return Decision{Allowed: true, Requirement: requirement}
}
