package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/auth"
)

// handleAuditEvents serves the paginated audit search consumed by
// administrative UIs. Records are immutable; this is a read-only surface.
func (a *API) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.recorder == nil {
		writeError(w, r, http.StatusServiceUnavailable, "audit unavailable")
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles: []string{auth.RoleSuperAdmin, auth.RoleAdmin},
	}, auth.Resource{CompanyID: claims.CompanyID}); !ok {
		return
	}

	f, err := parseAuditFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	page, err := a.recorder.Query(r.Context(), f)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit query failed")
		return
	}
	if page.Events == nil {
		page.Events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, page)
}

func parseAuditFilter(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	f := audit.Filter{
		Actor:  strings.TrimSpace(q.Get("actor")),
		Action: strings.TrimSpace(q.Get("action")),
		Asc:    strings.EqualFold(q.Get("order"), "asc"),
	}
	var err error
	if f.From, err = parseTimeParam(q.Get("from")); err != nil {
		return audit.Filter{}, err
	}
	if f.To, err = parseTimeParam(q.Get("to")); err != nil {
		return audit.Filter{}, err
	}
	if f.Page, err = parseIntParam(q.Get("page"), 1); err != nil {
		return audit.Filter{}, err
	}
	if f.PerPage, err = parseIntParam(q.Get("per_page"), 50); err != nil {
		return audit.Filter{}, err
	}
	return f, nil
}

func parseTimeParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseIntParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
