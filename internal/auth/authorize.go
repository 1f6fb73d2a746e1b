package auth

import (
	"context"
	"fmt"
)

// MaxManagerHops bounds upward traversal of the reporting chain. Deeper
// chains are treated as unreachable.
const MaxManagerHops = 16

// Requirement describes what a protected operation demands: at least one of
// Roles, and optionally that the caller sits in the target's manager chain.
type Requirement struct {
	Roles     []string
	Hierarchy bool
}

// Resource describes the target of a protected operation. CompanyID is nil
// for resources outside any tenant; OwnerID identifies the owning user and
// is only consulted for hierarchy checks.
type Resource struct {
	CompanyID *int64
	OwnerID   int64
}

// Engine evaluates authorization decisions. It holds only the set of global
// role names, never mutates, and is safe for concurrent use: identical inputs
// always produce identical results.
type Engine struct {
	global map[string]struct{}
}

// NewEngine constructs an Engine. With no arguments ROLE_SUPER_ADMIN is the
// sole global role.
func NewEngine(globalRoles ...string) *Engine {
	if len(globalRoles) == 0 {
		globalRoles = []string{RoleSuperAdmin}
	}
	set := make(map[string]struct{}, len(globalRoles))
	for _, r := range globalRoles {
		set[r] = struct{}{}
	}
	return &Engine{global: set}
}

// IsGlobal reports whether the named role bypasses tenant scoping.
func (e *Engine) IsGlobal(role string) bool {
	_, ok := e.global[role]
	return ok
}

// Authorize evaluates, in order: role presence, tenant scope, and (when the
// requirement asks for it) manager-chain reachability. A held global role
// always wins over a tenant mismatch. The resolver is only consulted for
// hierarchy checks and may be nil otherwise.
func (e *Engine) Authorize(ctx context.Context, claims *Claims, req Requirement, res Resource, resolver ManagerResolver) error {
	if claims == nil {
		return ErrMissingRole
	}

	matched := matchedRoles(claims.Roles, req.Roles)
	if len(matched) == 0 {
		return ErrMissingRole
	}

	if !e.anyGlobal(matched) {
		if claims.CompanyID == nil || res.CompanyID == nil || *claims.CompanyID != *res.CompanyID {
			return ErrTenantMismatch
		}
	}

	if req.Hierarchy {
		if resolver == nil {
			return fmt.Errorf("hierarchy check requires a manager resolver")
		}
		if claims.UserID == nil {
			return ErrNotInHierarchy
		}
		ok, err := reachesManager(ctx, resolver, res.OwnerID, *claims.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInHierarchy
		}
	}

	return nil
}

func (e *Engine) anyGlobal(roles []string) bool {
	for _, r := range roles {
		if e.IsGlobal(r) {
			return true
		}
	}
	return false
}

func matchedRoles(held, required []string) []string {
	if len(required) == 0 {
		return held
	}
	set := make(map[string]struct{}, len(held))
	for _, r := range held {
		set[r] = struct{}{}
	}
	var matched []string
	for _, r := range required {
		if _, ok := set[r]; ok {
			matched = append(matched, r)
		}
	}
	return matched
}
