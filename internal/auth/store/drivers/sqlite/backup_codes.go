package sqlite

import (
	"context"

	"github.com/studyroom/studyroom/internal/auth/store"
)

type backupCodesRepo struct {
	db dbtx
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, accountID, codeHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_codes (account_id, code_hash) VALUES (?, ?)`,
		accountID, codeHash,
	)
	return mapConstraint(err)
}

// ConsumeBackupCode deletes the matching code in one statement. RowsAffected
// decides whether this caller spent the code; a concurrent duplicate request
// sees zero rows and fails. This is the check-and-clear primitive the MFA
// challenge path relies on.
func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, accountID, codeHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE account_id = ? AND code_hash = ?`,
		accountID, codeHash,
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

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE account_id = ?`, accountID)
	return err
}

func (r *backupCodesRepo) CountBackupCodes(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM backup_codes WHERE account_id = ?`, accountID,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

var _ store.BackupCodes = (*backupCodesRepo)(nil)
