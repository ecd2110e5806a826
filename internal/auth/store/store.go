package store

import (
	"context"
	"errors"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a transaction helper for the multi-step operations that must
// be atomic (issuing a code while invalidating the prior one, enabling MFA
// together with its backup codes).
type Store interface {
	Accounts() Accounts
	VerificationCodes() VerificationCodes
	BackupCodes() BackupCodes
	Elevations() Elevations

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. The recommended way to run transactions.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a new account (id is provided by the app via
	// ULID). Returns ErrAlreadyExists when the email is taken, compared
	// case-insensitively.
	CreateAccount(ctx context.Context, a domain.Account) error

	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail looks an account up by email, case-insensitively.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// UpdatePasswordHash sets the password hash and bumps token_valid_since
	// in the same statement, so no session proof minted under the old
	// password can survive the change.
	UpdatePasswordHash(ctx context.Context, accountID, newHash string, validSince time.Time) error

	// BumpTokenValidSince invalidates all outstanding session proofs
	// without touching the password (forced logout).
	BumpTokenValidSince(ctx context.Context, accountID string, since time.Time) error

	// SetEmailVerified marks the account's email as confirmed.
	SetEmailVerified(ctx context.Context, accountID string) error

	// SetProfileComplete marks onboarding as finished.
	SetProfileComplete(ctx context.Context, accountID string) error

	// SetDeactivated flags the account as switched off. Never a delete.
	SetDeactivated(ctx context.Context, accountID string, at time.Time) error

	// SetMFAState transitions the MFA enrollment state. A nil secret
	// clears the stored secret (disable); otherwise it replaces it.
	SetMFAState(ctx context.Context, accountID string, state domain.MFAState, secret *string) error

	// IncrementFailedLogins bumps the consecutive-failure counter
	// atomically and returns the new value.
	IncrementFailedLogins(ctx context.Context, accountID string) (int, error)

	// ResetFailedLogins clears the consecutive-failure counter.
	ResetFailedLogins(ctx context.Context, accountID string) error

	// SetLockout opens a lockout window, records the strike count for the
	// backoff curve, and clears the failure counter in one statement.
	SetLockout(ctx context.Context, accountID string, until time.Time, strikes int) error

	// ClearLockout ends any lockout window and zeroes the strike count.
	// Used after a successful password reset.
	ClearLockout(ctx context.Context, accountID string) error
}

type VerificationCodes interface {
	// CreateCode stores a freshly issued code (hash only).
	CreateCode(ctx context.Context, c domain.VerificationCode) error

	// GetActiveCode returns the unconsumed code for (account, purpose),
	// expired or not; the engine decides what expiry means.
	GetActiveCode(ctx context.Context, accountID string, purpose domain.CodePurpose) (domain.VerificationCode, error)

	// InvalidateActiveCodes marks every unconsumed code for (account,
	// purpose) as consumed. Issuing invalidates prior codes explicitly,
	// not as an overwrite side effect.
	InvalidateActiveCodes(ctx context.Context, accountID string, purpose domain.CodePurpose, at time.Time) error

	// DecrementAttempts atomically decrements the remaining-attempts
	// counter (never below zero) and returns the new value.
	DecrementAttempts(ctx context.Context, codeID string) (int, error)

	// ConsumeCode marks the code consumed if and only if it still is
	// unconsumed. Returns false when another request won the race.
	ConsumeCode(ctx context.Context, codeID string, at time.Time) (bool, error)

	// DeleteExpiredCodes removes codes that expired before the cutoff.
	// Storage hygiene only; expiry is enforced at verification time.
	DeleteExpiredCodes(ctx context.Context, before time.Time) error
}

type BackupCodes interface {
	// CreateBackupCode stores a backup code hash for an account.
	CreateBackupCode(ctx context.Context, accountID, codeHash string) error

	// ConsumeBackupCode removes the code in a single atomic check-and-clear
	// so concurrent redemptions cannot double-spend. Returns false when the
	// code does not exist (wrong, or already consumed).
	ConsumeBackupCode(ctx context.Context, accountID, codeHash string) (bool, error)

	// DeleteAllBackupCodes removes every backup code for an account.
	DeleteAllBackupCodes(ctx context.Context, accountID string) error

	// CountBackupCodes returns how many unused codes remain.
	CountBackupCodes(ctx context.Context, accountID string) (int, error)
}

type Elevations interface {
	// CreateElevation stores a pending second-factor elevation.
	CreateElevation(ctx context.Context, e domain.Elevation) error

	// GetElevation retrieves an elevation by its opaque token.
	GetElevation(ctx context.Context, id string) (domain.Elevation, error)

	// IncrementElevationAttempts bumps the failed-attempt counter
	// atomically and returns the new value.
	IncrementElevationAttempts(ctx context.Context, id string) (int, error)

	// ConsumeElevation marks the elevation consumed if and only if it is
	// still unconsumed. Returns false when it was already exchanged.
	ConsumeElevation(ctx context.Context, id string, at time.Time) (bool, error)

	// DeleteElevation removes an elevation outright (attempt budget spent).
	DeleteElevation(ctx context.Context, id string) error

	// DeleteExpiredElevations removes elevations past their expiry.
	DeleteExpiredElevations(ctx context.Context, before time.Time) error
}
