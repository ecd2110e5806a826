package service

import "errors"

var (
	// Registration / credentials.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountDeactivated = errors.New("account deactivated")

	// Verification codes and elevation tokens.
	ErrExpired          = errors.New("expired")
	ErrInvalidCode      = errors.New("invalid code")
	ErrAttemptsExceeded = errors.New("attempts exceeded")
	ErrTooSoon          = errors.New("requested too soon")
	ErrAlreadyUsed      = errors.New("already used")
	ErrExhausted        = errors.New("no codes remaining")

	// MFA state machine.
	ErrMFANotEnabled     = errors.New("mfa not enabled")
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	ErrMFANotPending     = errors.New("mfa setup not pending")

	// Lockout and session proofs.
	ErrLocked       = errors.New("account locked")
	ErrProofRevoked = errors.New("session proof revoked")
)
