package domain

import (
	"errors"
	"time"
)

// Role is the account's role tag carried in issued session proofs. The
// verification subsystem only transports it; authorization policy lives
// elsewhere.
type Role string

const (
	RoleLearner    Role = "learner"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// ParseRole validates a role tag supplied at registration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleLearner, RoleInstructor, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrUnknownRole
}

// MFAState tracks an account's MFA enrollment.
type MFAState string

const (
	MFADisabled MFAState = "disabled"
	MFAPending  MFAState = "pending" // secret stored, activation proof outstanding
	MFAEnabled  MFAState = "enabled"
)

type Account struct {
	ID              string
	Email           string // unique, compared case-insensitively
	PasswordHash    string // argon2id encoded
	Role            Role
	EmailVerified   bool
	ProfileComplete bool
	DeactivatedAt   *time.Time // deactivation is a flag, never a hard delete

	MFAState  MFAState
	MFASecret *string // TOTP secret, present only when pending or enabled

	// Lockout bookkeeping. FailedLogins counts consecutive failures;
	// LockoutStrikes counts how many lockout windows the account has
	// already served, driving the exponential backoff.
	FailedLogins   int
	LockoutStrikes int
	LockedUntil    *time.Time

	// TokenValidSince invalidates every session proof minted before it.
	// Bumped atomically with any password change.
	TokenValidSince time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the account is inside an active lockout window.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Deactivated reports whether the account has been switched off.
func (a Account) Deactivated() bool {
	return a.DeactivatedAt != nil
}
