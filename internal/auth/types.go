package auth

import "time"

// Company is the tenant boundary. Most roles and resources are scoped to one.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an identity record. CompanyID is nil for global principals and
// ManagerID is a weak reference to another user forming the reporting chain.
// Users are never hard-deleted; deactivation flips Active.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CompanyID    *int64    `json:"company_id"`
	ManagerID    *int64    `json:"manager_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role names a capability set. Global roles bypass tenant scoping entirely.
type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Global    bool      `json:"global"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is a user with its resolved role names, as returned by
// credential verification and consumed by token issuance.
type Principal struct {
	User  *User
	Roles []string
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}
