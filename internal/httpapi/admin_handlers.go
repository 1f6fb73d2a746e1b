package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/auth"
)

type createCompanyRequest struct {
	Name string `json:"name"`
}

type createUserRequest struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	CompanyID *int64   `json:"company_id"`
	Roles     []string `json:"roles"`
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

type setManagerRequest struct {
	ManagerID *int64 `json:"manager_id"`
}

func (a *API) handleCompanies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handleCompanyList(w, r)
	case http.MethodPost:
		a.handleCompanyCreate(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// Tenant listing spans all tenants: global role only.
func (a *API) handleCompanyList(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles: []string{auth.RoleSuperAdmin},
	}, auth.Resource{}); !ok {
		return
	}
	companies, err := a.auth.ListCompanies(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if companies == nil {
		companies = []*auth.Company{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

// Tenant creation is a platform-level action: global role only.
func (a *API) handleCompanyCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles: []string{auth.RoleSuperAdmin},
	}, auth.Resource{}); !ok {
		return
	}
	var req createCompanyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	company, err := a.auth.CreateCompany(r.Context(), req.Name)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	event := audit.Event{
		Action:     "company.create",
		TargetType: "company",
		TargetID:   fmt.Sprintf("%d", company.ID),
		Details:    company.Name,
		Status:     audit.StatusSuccess,
	}
	a.auditActor(r.Context(), &event)
	a.recordAudit(r, event)
	w.Header().Set("Location", fmt.Sprintf("/v1/companies/%d", company.ID))
	writeJSON(w, http.StatusCreated, company)
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Super-admins create anywhere; tenant admins only inside their company.
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles: []string{auth.RoleSuperAdmin, auth.RoleAdmin},
	}, auth.Resource{CompanyID: req.CompanyID}); !ok {
		return
	}
	user, err := a.auth.CreateUser(r.Context(), req.Username, req.Email, req.Password, req.CompanyID, req.Roles)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	event := audit.Event{
		Action:     "user.create",
		TargetType: "user",
		TargetID:   fmt.Sprintf("%d", user.ID),
		Details:    user.Username,
		Status:     audit.StatusSuccess,
	}
	a.auditActor(r.Context(), &event)
	a.recordAudit(r, event)
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%d", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

// handleUserScoped dispatches /v1/users/{id}[/roles[/{name}]|/manager].
func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch {
	case len(parts) == 1:
		a.handleUser(w, r, userID)
	case len(parts) == 2 && parts[1] == "roles":
		a.handleUserRoles(w, r, userID)
	case len(parts) == 3 && parts[1] == "roles":
		a.handleUserRoleRemove(w, r, userID, parts[2])
	case len(parts) == 2 && parts[1] == "manager":
		a.handleUserManager(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// requireUserAdmin authorizes an admin operation against the target user's
// company: super-admin anywhere, tenant admin within their own tenant.
func (a *API) requireUserAdmin(w http.ResponseWriter, r *http.Request, userID int64) (auth.Principal, bool) {
	target, err := a.auth.PrincipalByID(r.Context(), userID)
	if err != nil {
		handleAuthError(w, r, err)
		return auth.Principal{}, false
	}
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles: []string{auth.RoleSuperAdmin, auth.RoleAdmin},
	}, auth.Resource{CompanyID: target.User.CompanyID, OwnerID: target.User.ID}); !ok {
		return auth.Principal{}, false
	}
	return target, true
}

func (a *API) handleUser(w http.ResponseWriter, r *http.Request, userID int64) {
	switch r.Method {
	case http.MethodGet:
		target, ok := a.requireUserAdmin(w, r, userID)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":  target.User,
			"roles": target.Roles,
		})
	case http.MethodDelete:
		target, ok := a.requireUserAdmin(w, r, userID)
		if !ok {
			return
		}
		if err := a.auth.DeactivateUser(r.Context(), userID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		event := audit.Event{
			Action:     "user.deactivate",
			TargetType: "user",
			TargetID:   fmt.Sprintf("%d", userID),
			Details:    target.User.Username,
			Status:     audit.StatusSuccess,
		}
		a.auditActor(r.Context(), &event)
		a.recordAudit(r, event)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleUserRoles(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := a.requireUserAdmin(w, r, userID); !ok {
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.AssignRole(r.Context(), userID, req.Role); err != nil {
		handleAuthError(w, r, err)
		return
	}
	event := audit.Event{
		Action:     "user.role.assign",
		TargetType: "user",
		TargetID:   fmt.Sprintf("%d", userID),
		Details:    req.Role,
		Status:     audit.StatusSuccess,
	}
	a.auditActor(r.Context(), &event)
	a.recordAudit(r, event)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUserRoleRemove(w http.ResponseWriter, r *http.Request, userID int64, roleName string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if _, ok := a.requireUserAdmin(w, r, userID); !ok {
		return
	}
	if err := a.auth.RemoveRole(r.Context(), userID, roleName); err != nil {
		handleAuthError(w, r, err)
		return
	}
	event := audit.Event{
		Action:     "user.role.remove",
		TargetType: "user",
		TargetID:   fmt.Sprintf("%d", userID),
		Details:    roleName,
		Status:     audit.StatusSuccess,
	}
	a.auditActor(r.Context(), &event)
	a.recordAudit(r, event)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUserManager(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if _, ok := a.requireUserAdmin(w, r, userID); !ok {
		return
	}
	var req setManagerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.SetManager(r.Context(), userID, req.ManagerID); err != nil {
		handleAuthError(w, r, err)
		return
	}
	details := "cleared"
	if req.ManagerID != nil {
		details = fmt.Sprintf("manager=%d", *req.ManagerID)
	}
	event := audit.Event{
		Action:     "user.manager.set",
		TargetType: "user",
		TargetID:   fmt.Sprintf("%d", userID),
		Details:    details,
		Status:     audit.StatusSuccess,
	}
	a.auditActor(r.Context(), &event)
	a.recordAudit(r, event)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles: []string{auth.RoleSuperAdmin, auth.RoleAdmin, auth.RoleHR},
	}, auth.Resource{CompanyID: claims.CompanyID}); !ok {
		return
	}
	roles, err := a.auth.ListRoles(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}
