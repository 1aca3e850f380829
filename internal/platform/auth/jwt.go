package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const sessionIssuerName = "glowcart-api"

// SessionClaims carries the registered and custom claims embedded in customer
// session tokens minted after a successful OTP login.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and verifies HS256 session tokens.
type SessionIssuer struct {
	signingKey []byte
	ttl        time.Duration
	clock      func() time.Time
}

// SessionIssuerOption customises SessionIssuer instances.
type SessionIssuerOption func(*SessionIssuer)

// WithSessionClock overrides the time source, primarily for tests.
func WithSessionClock(clock func() time.Time) SessionIssuerOption {
	return func(s *SessionIssuer) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSessionIssuer constructs a SessionIssuer for the given signing key and
// token lifetime.
func NewSessionIssuer(signingKey string, ttl time.Duration, opts ...SessionIssuerOption) (*SessionIssuer, error) {
	if strings.TrimSpace(signingKey) == "" {
		return nil, errors.New("auth: session signing key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session ttl must be positive")
	}
	issuer := &SessionIssuer{
		signingKey: []byte(signingKey),
		ttl:        ttl,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}
	return issuer, nil
}

// Issue mints a signed session token for the given principal.
func (s *SessionIssuer) Issue(_ context.Context, userID, email, name, role string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("auth: user id is required")
	}
	now := s.clock().UTC()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		Email: strings.TrimSpace(email),
		Name:  strings.TrimSpace(name),
		Role:  normaliseRole(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuerName,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a session token, returning the identity it
// represents.
func (s *SessionIssuer) Verify(_ context.Context, tokenStr string) (*Identity, error) {
	claims := &SessionClaims{}
	// Time-based claims are checked against the injected clock below, so the
	// parser only verifies the signature and algorithm.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	now := s.clock().UTC()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, ErrTokenExpired
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return &Identity{
		UID:   claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
		Roles: []string{role},
	}, nil
}
