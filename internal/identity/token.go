// Package identity issues and verifies session tokens and provides the gin
// middleware that gates HTTP routes on authentication and role permissions.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/decms-project/decms/internal/users"
)

// Claims are the JWT claims for a DECMS session token. Permission flags are
// embedded at login time so route gating needs no database round-trip; a role
// change takes effect at the next login.
type Claims struct {
	jwt.RegisteredClaims
	UserID              int64  `json:"user_id"`
	Email               string `json:"email"`
	Role                string `json:"role"`
	CanManageUsers      bool   `json:"can_manage_users"`
	CanCreateCases      bool   `json:"can_create_cases"`
	CanTransferEvidence bool   `json:"can_transfer_evidence"`
}

// TokenIssuer issues and verifies session JWTs with an HMAC secret.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	issuerURL — the "iss" claim value; matches the service's base URL.
//	ttl       — token lifetime (default: 8 hours).
func NewTokenIssuer(secret []byte, issuerURL string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &TokenIssuer{secret: secret, issuer: issuerURL, ttl: ttl}
}

// Issue creates a signed session token for the given account.
func (t *TokenIssuer) Issue(u *users.User) (string, error) {
	if u.Role == nil {
		return "", fmt.Errorf("user %d has no role loaded", u.ID)
	}
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		UserID:              u.ID,
		Email:               u.Email,
		Role:                u.Role.Name,
		CanManageUsers:      u.Role.CanManageUsers,
		CanCreateCases:      u.Role.CanCreateCases,
		CanTransferEvidence: u.Role.CanTransferEvidence,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (t *TokenIssuer) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}
	return claims, nil
}
