package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CompanyID *int64    `json:"tenantId"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	principal, token, expiresAt, err := a.auth.Login(r.Context(), username, req.Password)
	if err != nil {
		// Audit the failed attempt with the claimed username; outcome stays
		// decoupled from the response.
		a.recordAudit(r, audit.Event{
			Actor:      username,
			Action:     "auth.login",
			TargetType: "user",
			Details:    "login rejected",
			Status:     audit.StatusFailure,
		})
		handleAuthError(w, r, err)
		return
	}

	id := principal.User.ID
	a.recordAudit(r, audit.Event{
		Actor:      principal.User.Username,
		ActorID:    &id,
		Action:     "auth.login",
		TargetType: "user",
		TargetID:   fmt.Sprintf("%d", id),
		Details:    "login succeeded",
		Status:     audit.StatusSuccess,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ID:        principal.User.ID,
		Username:  principal.User.Username,
		Email:     principal.User.Email,
		Roles:     principal.Roles,
		CompanyID: principal.User.CompanyID,
		ExpiresAt: expiresAt,
	})
}

// recordAudit fills request-derived fields and fires the event. Never blocks,
// never fails; the recorder swallows persistence errors by design.
func (a *API) recordAudit(r *http.Request, e audit.Event) {
	if a.recorder == nil {
		return
	}
	e.IPAddress = clientIP(r)
	a.recorder.Record(e)
}

// auditActor stamps the acting principal from context onto an event.
func (a *API) auditActor(ctx context.Context, e *audit.Event) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return
	}
	e.Actor = claims.Subject
	e.ActorID = claims.UserID
}
