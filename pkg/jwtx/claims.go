package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for full session proofs.
// Short-lived so the per-account valid-since check stays the primary
// revocation mechanism rather than a safety net.
const DefaultSessionTTL = 1 * time.Hour

// TokenUseSession marks a full session proof. It is the only token use the
// authentication middleware accepts; anything else is rejected everywhere.
const TokenUseSession = "session"

// Claims are the session-proof claims issued after full authentication.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the account's role tag (learner, instructor, admin).
	Role string `json:"role,omitempty"`

	// TokenUse distinguishes full session proofs from anything else that
	// might be signed with the same key in the future.
	TokenUse string `json:"use,omitempty"`

	// ValidSince is the account's token_valid_since at issue time (unix
	// seconds). A proof is only accepted while this matches or postdates
	// the stored value; bumping the stored value kills every older proof.
	ValidSince int64 `json:"vst,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a full session proof.
func NewSessionClaims(
	subject, role, issuer string,
	validSince time.Time,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:       role,
		TokenUse:   TokenUseSession,
		ValidSince: validSince.Unix(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
