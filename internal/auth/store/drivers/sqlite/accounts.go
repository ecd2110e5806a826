package sqlite

import (
	"context"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, password_hash, role, email_verified, profile_complete,
	deactivated_at, mfa_state, mfa_secret, failed_logins, lockout_strikes,
	locked_until, token_valid_since, created_at, updated_at`

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, token_valid_since)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, string(a.Role), a.TokenValidSince,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower(?)`, email)

	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

// UpdatePasswordHash sets the new hash and bumps token_valid_since in the
// same statement so the revocation marker can never lag behind the change.
func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID, newHash string, validSince time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = ?, token_valid_since = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, validSince, accountID,
	)
	return err
}

func (r *accountsRepo) BumpTokenValidSince(ctx context.Context, accountID string, since time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET token_valid_since = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		since, accountID,
	)
	return err
}

func (r *accountsRepo) SetEmailVerified(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET email_verified = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accountID,
	)
	return err
}

func (r *accountsRepo) SetProfileComplete(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET profile_complete = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accountID,
	)
	return err
}

func (r *accountsRepo) SetDeactivated(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET deactivated_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		at, accountID,
	)
	return err
}

func (r *accountsRepo) SetMFAState(ctx context.Context, accountID string, state domain.MFAState, secret *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET mfa_state = ?, mfa_secret = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(state), mapOptionalString(secret), accountID,
	)
	return err
}

func (r *accountsRepo) IncrementFailedLogins(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET failed_logins = failed_logins + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING failed_logins`,
		accountID,
	).Scan(&n)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

func (r *accountsRepo) ResetFailedLogins(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET failed_logins = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accountID,
	)
	return err
}

func (r *accountsRepo) SetLockout(ctx context.Context, accountID string, until time.Time, strikes int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET locked_until = ?, lockout_strikes = ?, failed_logins = 0,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		until, strikes, accountID,
	)
	return err
}

func (r *accountsRepo) ClearLockout(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET locked_until = NULL, lockout_strikes = 0, failed_logins = 0,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accountID,
	)
	return err
}

var _ store.Accounts = (*accountsRepo)(nil)
