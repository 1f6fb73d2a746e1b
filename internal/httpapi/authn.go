package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"hrcore.io/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth validates the bearer token on every protected request and attaches
// the verified claims to the context. No session state is consulted; the
// token alone carries identity, tenant, and roles.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.auth.Tokens().ParseAndVerify(token)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorize runs one engine evaluation for the current request and writes the
// denial response itself. Returns the claims on success.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, req auth.Requirement, res auth.Resource) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	var resolver auth.ManagerResolver
	if req.Hierarchy {
		resolver = a.auth.ManagerResolver(r.Context())
	}
	if err := a.engine.Authorize(r.Context(), claims, req, res, resolver); err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			handleAuthError(w, r, err)
		} else {
			writeError(w, r, http.StatusInternalServerError, "authorization error")
		}
		return nil, false
	}
	return claims, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
