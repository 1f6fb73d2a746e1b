package auth

import "context"

// Store describes persistence operations required by the identity core.
type Store interface {
	Users(ctx context.Context) UserStore
	Companies(ctx context.Context) CompanyStore
	Roles(ctx context.Context) RoleStore
}

// UserStore manages identity records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	RoleNames(ctx context.Context, userID int64) ([]string, error)
	SetManager(ctx context.Context, userID int64, managerID *int64) error
	SetActive(ctx context.Context, userID int64, active bool) error
	ManagerOf(ctx context.Context, userID int64) (*int64, error)
}

// CompanyStore manages tenants.
type CompanyStore interface {
	Create(ctx context.Context, c *Company) error
	Find(ctx context.Context, id int64) (*Company, error)
	List(ctx context.Context) ([]*Company, error)
}

// RoleStore manages the role catalog and user assignments.
type RoleStore interface {
	Ensure(ctx context.Context, roles []Role) error
	List(ctx context.Context) ([]Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	Assign(ctx context.Context, userID, roleID int64) error
	Unassign(ctx context.Context, userID, roleID int64) error
}

// ManagerResolver resolves one upward hop in the reporting chain. Implemented
// by UserStore; narrowed so the authorization engine depends on a single read.
type ManagerResolver interface {
	ManagerOf(ctx context.Context, userID int64) (*int64, error)
}
