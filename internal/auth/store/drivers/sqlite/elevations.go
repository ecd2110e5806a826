package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
)

type elevationsRepo struct {
	db dbtx
}

func (r *elevationsRepo) CreateElevation(ctx context.Context, e domain.Elevation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO elevations (id, account_id, attempts, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, e.Attempts, e.CreatedAt, e.ExpiresAt,
	)
	return err
}

func (r *elevationsRepo) GetElevation(ctx context.Context, id string) (domain.Elevation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, attempts, created_at, expires_at, consumed_at
		FROM elevations
		WHERE id = ?`,
		id,
	)

	var (
		e          domain.Elevation
		consumedAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.AccountID, &e.Attempts, &e.CreatedAt, &e.ExpiresAt, &consumedAt)
	if err != nil {
		return domain.Elevation{}, mapNotFound(err)
	}
	e.ConsumedAt = mapNullTimePtr(consumedAt)
	return e, nil
}

func (r *elevationsRepo) IncrementElevationAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		UPDATE elevations
		SET attempts = attempts + 1
		WHERE id = ?
		RETURNING attempts`,
		id,
	).Scan(&n)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

// ConsumeElevation flips consumed_at only when still unset, so exchanging
// the same elevation twice succeeds at most once regardless of timing.
func (r *elevationsRepo) ConsumeElevation(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE elevations
		SET consumed_at = ?
		WHERE id = ? AND consumed_at IS NULL`,
		at, id,
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

func (r *elevationsRepo) DeleteElevation(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM elevations WHERE id = ?`, id)
	return err
}

func (r *elevationsRepo) DeleteExpiredElevations(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM elevations WHERE expires_at < ?`, before)
	return err
}

var _ store.Elevations = (*elevationsRepo)(nil)
