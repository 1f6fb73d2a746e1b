package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "hrcore"
	defaultTokenTTL = 15 * time.Minute

	// MinKeyBytes is the smallest accepted HS256 signing key (256 bits).
	MinKeyBytes = 32
)

// Claims is the signed bag carried by a bearer token. Field names are part of
// the wire contract consumed by clients and business services.
type Claims struct {
	UserID    *int64   `json:"userId,omitempty"`
	CompanyID *int64   `json:"companyId"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// Username returns the token subject.
func (c *Claims) Username() string { return c.Subject }

// HasRole reports whether the claim set carries the named role.
func (c *Claims) HasRole(name string) bool {
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// TokenService issues and validates stateless HS256 bearer tokens. The server
// keeps no session table; a token's lifetime is entirely its signed expiry.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures TokenService.
type TokenOption func(*TokenService)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if iss := strings.TrimSpace(issuer); iss != "" {
			s.issuer = iss
		}
	}
}

// WithTokenTTL configures token lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService. Keys shorter than 256 bits are
// rejected outright; this is a startup error, not a runtime fallback.
func NewTokenService(secret []byte, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinKeyBytes {
		return nil, fmt.Errorf("auth: signing key must be at least %d bytes, got %d", MinKeyBytes, len(secret))
	}
	s := &TokenService{
		secret: secret,
		issuer: defaultIssuer,
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for a verified principal.
func (s *TokenService) Issue(p Principal) (string, time.Time, error) {
	if p.User == nil {
		return "", time.Time{}, fmt.Errorf("%w: principal has no user", ErrInvalidInput)
	}
	id := p.User.ID
	return s.sign(p.User.Username, &id, p.User.CompanyID, p.Roles)
}

// IssueFor signs a system token from an explicit username/roles/company
// triple. No userId claim is embedded.
func (s *TokenService) IssueFor(username string, roles []string, companyID *int64) (string, time.Time, error) {
	return s.sign(username, nil, companyID, roles)
}

func (s *TokenService) sign(username string, userID, companyID *int64, roles []string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", time.Time{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID:    userID,
		CompanyID: companyID,
		Roles:     dedupeRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseAndVerify checks signature and expiry and recovers the claim set.
// No server-side state is consulted. Any corruption of the signed payload
// fails the HMAC check and surfaces as ErrTokenSignature or ErrTokenMalformed.
func (s *TokenService) ParseAndVerify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMalformed
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenSignature
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenSignature
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenMalformed
	}
	claims.Roles = dedupeRoles(claims.Roles)
	return claims, nil
}

// ValidateAgainst performs the same checks as ParseAndVerify and additionally
// requires the token subject to match the expected username. Defends against
// stale tokens referencing renamed or re-created accounts.
func (s *TokenService) ValidateAgainst(token, expectedUsername string) (*Claims, error) {
	claims, err := s.ParseAndVerify(token)
	if err != nil {
		return nil, err
	}
	if claims.Subject != strings.TrimSpace(expectedUsername) {
		return nil, ErrSubjectMismatch
	}
	return claims, nil
}

func dedupeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	var normalized []string
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	return normalized
}
