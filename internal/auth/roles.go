package auth

// Built-in role names. ROLE_SUPER_ADMIN is the only global role by default;
// everything else is scoped to the holder's company.
const (
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
	RoleAdmin      = "ROLE_ADMIN"
	RoleHR         = "ROLE_HR"
	RoleManager    = "ROLE_MANAGER"
	RoleEmployee   = "ROLE_EMPLOYEE"
)

// BuiltinRoles are installed by the seed migration and expected by the
// authorization engine defaults.
var BuiltinRoles = []Role{
	{Name: RoleSuperAdmin, Global: true},
	{Name: RoleAdmin},
	{Name: RoleHR},
	{Name: RoleManager},
	{Name: RoleEmployee},
}
