package domain

import "time"

// SessionProof is the bearer credential granted after full authentication.
// The token itself is a self-verifying JWT; revocation happens through the
// account's valid-since comparison, not a revocation list.
type SessionProof struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // "Bearer"
	ExpiresIn   int64  `json:"expires_in"` // seconds until expiry
	Role        Role   `json:"role"`
}

// Elevation is the stored record behind an elevation token: proof that
// password validation succeeded while a second factor is still required.
// The token handed to the client is the record's opaque ID; it carries no
// authorization weight and is accepted only by the MFA-verification path.
type Elevation struct {
	ID         string
	AccountID  string
	Attempts   int // failed second-factor attempts against this elevation
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Expired reports whether the elevation window has closed.
func (e Elevation) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Consumed reports whether the elevation was already exchanged.
func (e Elevation) Consumed() bool {
	return e.ConsumedAt != nil
}
