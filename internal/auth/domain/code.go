package domain

import "time"

// CodePurpose binds a verification code to the single flow it may serve.
type CodePurpose string

const (
	PurposeEmailVerify   CodePurpose = "email_verify"
	PurposePasswordReset CodePurpose = "password_reset"
)

// VerificationCode is a short-lived one-time numeric code. Only the
// fingerprint of the code is ever persisted; the plaintext exists in the
// issue response and the delivery channel, nowhere else.
type VerificationCode struct {
	ID           string
	AccountID    string
	Purpose      CodePurpose
	CodeHash     string
	AttemptsLeft int
	IssuedAt     time.Time
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
}

// Expired reports whether the code's TTL has elapsed.
func (c VerificationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
