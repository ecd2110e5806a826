package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
)

type verificationCodesRepo struct {
	db dbtx
}

func (r *verificationCodesRepo) CreateCode(ctx context.Context, c domain.VerificationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_codes
			(id, account_id, purpose, code_hash, attempts_left, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, string(c.Purpose), c.CodeHash, c.AttemptsLeft, c.IssuedAt, c.ExpiresAt,
	)
	return err
}

func (r *verificationCodesRepo) GetActiveCode(ctx context.Context, accountID string, purpose domain.CodePurpose) (domain.VerificationCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, purpose, code_hash, attempts_left, issued_at, expires_at, consumed_at
		FROM verification_codes
		WHERE account_id = ? AND purpose = ? AND consumed_at IS NULL
		ORDER BY issued_at DESC
		LIMIT 1`,
		accountID, string(purpose),
	)

	var (
		c          domain.VerificationCode
		consumedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.AccountID, &c.Purpose, &c.CodeHash,
		&c.AttemptsLeft, &c.IssuedAt, &c.ExpiresAt, &consumedAt)
	if err != nil {
		return domain.VerificationCode{}, mapNotFound(err)
	}
	c.ConsumedAt = mapNullTimePtr(consumedAt)
	return c, nil
}

func (r *verificationCodesRepo) InvalidateActiveCodes(ctx context.Context, accountID string, purpose domain.CodePurpose, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE verification_codes
		SET consumed_at = ?
		WHERE account_id = ? AND purpose = ? AND consumed_at IS NULL`,
		at, accountID, string(purpose),
	)
	return err
}

func (r *verificationCodesRepo) DecrementAttempts(ctx context.Context, codeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		UPDATE verification_codes
		SET attempts_left = max(attempts_left - 1, 0)
		WHERE id = ?
		RETURNING attempts_left`,
		codeID,
	).Scan(&n)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

// ConsumeCode is a conditional update, not a read-then-write, so a racing
// second consumer observes zero affected rows instead of a double spend.
func (r *verificationCodesRepo) ConsumeCode(ctx context.Context, codeID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verification_codes
		SET consumed_at = ?
		WHERE id = ? AND consumed_at IS NULL`,
		at, codeID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *verificationCodesRepo) DeleteExpiredCodes(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE expires_at < ?`, before)
	return err
}

var _ store.VerificationCodes = (*verificationCodesRepo)(nil)
