package auth

import (
	"errors"
	"fmt"
)

// Category sentinels. The HTTP layer maps ErrUnauthenticated to 401 and
// ErrForbidden to 403; callers branch on the specific reasons below with
// errors.Is.
var (
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")

	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
)

// Credential verification failures. All wrap ErrUnauthenticated so the
// surface can answer a uniform 401 without leaking which check failed.
var (
	ErrUserNotFound   = fmt.Errorf("%w: unknown user", ErrUnauthenticated)
	ErrUserDisabled   = fmt.Errorf("%w: user disabled", ErrUnauthenticated)
	ErrBadCredentials = fmt.Errorf("%w: bad credentials", ErrUnauthenticated)
)

// Token failures.
var (
	ErrTokenMalformed  = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrTokenSignature  = fmt.Errorf("%w: invalid token signature", ErrUnauthenticated)
	ErrTokenExpired    = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrSubjectMismatch = fmt.Errorf("%w: token subject mismatch", ErrUnauthenticated)
)

// Authorization denials.
var (
	ErrMissingRole     = fmt.Errorf("%w: missing required role", ErrForbidden)
	ErrTenantMismatch  = fmt.Errorf("%w: tenant mismatch", ErrForbidden)
	ErrNotInHierarchy  = fmt.Errorf("%w: not in manager hierarchy", ErrForbidden)
	ErrGlobalRoleGrant = fmt.Errorf("%w: only a global role holder may grant a global role", ErrForbidden)
)

// ErrHierarchyCycle rejects a manager write that would make a user reachable
// from itself. Wraps ErrConflict: the requested state conflicts with the graph.
var ErrHierarchyCycle = fmt.Errorf("%w: manager assignment would create a cycle", ErrConflict)
