package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service provides credential verification, login orchestration, and the
// administrative mutations of the identity model. Reads never mutate shared
// state, so concurrent calls need no locking.
type Service struct {
	store  Store
	tokens *TokenService
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	svc := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Tokens exposes the token service for validation paths.
func (s *Service) Tokens() *TokenService { return s.tokens }

// EnsureBuiltins installs the built-in role catalog.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.Roles(ctx).Ensure(ctx, BuiltinRoles)
}

// Authenticate checks a username/password pair against the stored record and
// returns the principal with resolved roles. Purely a read; the distinct
// failure reasons all wrap ErrUnauthenticated and must not be surfaced
// verbatim to callers.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Principal{}, ErrBadCredentials
	}
	user, err := s.store.Users(ctx).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUserNotFound
		}
		return Principal{}, err
	}
	if !user.Active {
		return Principal{}, ErrUserDisabled
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Principal{}, ErrBadCredentials
	}
	roles, err := s.store.Users(ctx).RoleNames(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{User: user, Roles: roles}, nil
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (Principal, string, time.Time, error) {
	principal, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return Principal{}, "", time.Time{}, err
	}
	token, expiresAt, err := s.tokens.Issue(principal)
	if err != nil {
		return Principal{}, "", time.Time{}, err
	}
	return principal, token, expiresAt, nil
}

// PrincipalByID loads a user with resolved roles. The engine re-reads this
// state per request; nothing is cached across requests.
func (s *Service) PrincipalByID(ctx context.Context, userID int64) (Principal, error) {
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	roles, err := s.store.Users(ctx).RoleNames(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{User: user, Roles: roles}, nil
}

// ManagerResolver returns the single-hop resolver backed by the user store.
func (s *Service) ManagerResolver(ctx context.Context) ManagerResolver {
	return s.store.Users(ctx)
}

// CreateCompany registers a tenant.
func (s *Service) CreateCompany(ctx context.Context, name string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrInvalidInput)
	}
	company := &Company{Name: name, Active: true}
	if err := s.store.Companies(ctx).Create(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// ListCompanies returns all registered tenants.
func (s *Service) ListCompanies(ctx context.Context) ([]*Company, error) {
	return s.store.Companies(ctx).List(ctx)
}

// CreateUser registers an identity with a hashed password and optional role
// grants. Username and email are unique across all tenants; the store
// answers ErrConflict on violation.
func (s *Service) CreateUser(ctx context.Context, username, email, password string, companyID *int64, roleNames []string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if companyID != nil {
		if _, err := s.store.Companies(ctx).Find(ctx, *companyID); err != nil {
			return nil, err
		}
	}
	// Resolve and authorize the grants before the insert so a denied or
	// unknown role never leaves a half-created user behind.
	var roles []*Role
	for _, name := range dedupeRoles(roleNames) {
		role, err := s.store.Roles(ctx).FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := s.requireGlobalGrantor(ctx, role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		CompanyID:    companyID,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}
	for _, role := range roles {
		if err := s.store.Roles(ctx).Assign(ctx, user.ID, role.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// AssignRole grants the named role to a user. Global roles may only be
// granted by a caller who itself holds one.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleName string) error {
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		return fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	role, err := s.store.Roles(ctx).FindByName(ctx, roleName)
	if err != nil {
		return err
	}
	if err := s.requireGlobalGrantor(ctx, role); err != nil {
		return err
	}
	return s.store.Roles(ctx).Assign(ctx, userID, role.ID)
}

// requireGlobalGrantor gates grants of global roles: a caller acting under
// verified claims must hold a global role to hand one out, so a tenant admin
// can never widen their own reach through a grant. Calls without claims are
// system-initiated (bootstrap, seeding) and trusted. Grantor roles are
// re-read from the store, not trusted from the token alone.
func (s *Service) requireGlobalGrantor(ctx context.Context, role *Role) error {
	if !role.Global {
		return nil
	}
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil
	}
	for _, name := range claims.Roles {
		held, err := s.store.Roles(ctx).FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		if held.Global {
			return nil
		}
	}
	return ErrGlobalRoleGrant
}

// RemoveRole revokes the named role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID int64, roleName string) error {
	role, err := s.store.Roles(ctx).FindByName(ctx, strings.TrimSpace(roleName))
	if err != nil {
		return err
	}
	return s.store.Roles(ctx).Unassign(ctx, userID, role.ID)
}

// SetManager updates a user's reporting line. A nil managerID clears it.
// Writes that would make the user reachable from itself are rejected with
// ErrHierarchyCycle; acyclicity is an invariant of the graph, enforced here
// at write time rather than trusted at read time.
func (s *Service) SetManager(ctx context.Context, userID int64, managerID *int64) error {
	users := s.store.Users(ctx)
	if _, err := users.Find(ctx, userID); err != nil {
		return err
	}
	if managerID != nil {
		if _, err := users.Find(ctx, *managerID); err != nil {
			return err
		}
		if err := checkManagerAssignment(ctx, users, userID, *managerID); err != nil {
			return err
		}
	}
	return users.SetManager(ctx, userID, managerID)
}

// DeactivateUser logically deletes an identity. The record is kept; only the
// active flag flips, which blocks authentication immediately.
func (s *Service) DeactivateUser(ctx context.Context, userID int64) error {
	return s.store.Users(ctx).SetActive(ctx, userID, false)
}

// ListRoles returns the role catalog.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.Roles(ctx).List(ctx)
}
