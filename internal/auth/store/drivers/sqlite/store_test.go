package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestAccount(t *testing.T, s *Store, email string) domain.Account {
	t.Helper()

	a := domain.Account{
		ID:              idx.New().String(),
		Email:           email,
		PasswordHash:    "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		Role:            domain.RoleLearner,
		TokenValidSince: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	return a
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newTestAccount(t, s, "learner@example.com")

	dup := domain.Account{
		ID:              idx.New().String(),
		Email:           "LEARNER@example.com", // differs only in case
		PasswordHash:    "hash",
		Role:            domain.RoleLearner,
		TokenValidSince: time.Now().UTC(),
	}
	err := s.Accounts().CreateAccount(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	// Lookup is case-insensitive too.
	got, err := s.Accounts().GetAccountByEmail(ctx, "Learner@Example.COM")
	require.NoError(t, err)
	require.Equal(t, "learner@example.com", got.Email)
}

func TestConsumeBackupCodeIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "mfa@example.com")

	require.NoError(t, s.BackupCodes().CreateBackupCode(ctx, acct.ID, "code-fp"))

	// Race several consumers at the same code; exactly one may win.
	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.BackupCodes().ConsumeBackupCode(ctx, acct.ID, "code-fp")
			require.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)

	n, err := s.BackupCodes().CountBackupCodes(ctx, acct.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestConsumeCodeSingleUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "codes@example.com")
	now := time.Now().UTC()

	code := domain.VerificationCode{
		ID:           idx.New().String(),
		AccountID:    acct.ID,
		Purpose:      domain.PurposeEmailVerify,
		CodeHash:     "fp",
		AttemptsLeft: 5,
		IssuedAt:     now,
		ExpiresAt:    now.Add(10 * time.Minute),
	}
	require.NoError(t, s.VerificationCodes().CreateCode(ctx, code))

	ok, err := s.VerificationCodes().ConsumeCode(ctx, code.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.VerificationCodes().ConsumeCode(ctx, code.ID, now)
	require.NoError(t, err)
	require.False(t, ok, "second consume must lose")

	// Consumed codes are no longer active.
	_, err = s.VerificationCodes().GetActiveCode(ctx, acct.ID, domain.PurposeEmailVerify)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDecrementAttemptsStopsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "attempts@example.com")
	now := time.Now().UTC()

	code := domain.VerificationCode{
		ID:           idx.New().String(),
		AccountID:    acct.ID,
		Purpose:      domain.PurposePasswordReset,
		CodeHash:     "fp",
		AttemptsLeft: 2,
		IssuedAt:     now,
		ExpiresAt:    now.Add(10 * time.Minute),
	}
	require.NoError(t, s.VerificationCodes().CreateCode(ctx, code))

	for _, want := range []int{1, 0, 0} {
		n, err := s.VerificationCodes().DecrementAttempts(ctx, code.ID)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}
}

func TestConsumeElevationSingleUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "elev@example.com")
	now := time.Now().UTC()

	e := domain.Elevation{
		ID:        idx.New().String(),
		AccountID: acct.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, s.Elevations().CreateElevation(ctx, e))

	ok, err := s.Elevations().ConsumeElevation(ctx, e.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Elevations().ConsumeElevation(ctx, e.ID, now)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := s.Elevations().GetElevation(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, got.Consumed())
}

func TestUpdatePasswordHashBumpsValidSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "rotate@example.com")

	bumped := acct.TokenValidSince.Add(time.Hour)
	require.NoError(t, s.Accounts().UpdatePasswordHash(ctx, acct.ID, "new-hash", bumped))

	got, err := s.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.True(t, got.TokenValidSince.After(acct.TokenValidSince))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "tx@example.com")

	sentinel := store.ErrNotFound
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().CreateBackupCode(ctx, acct.ID, "fp1"); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	n, err := s.BackupCodes().CountBackupCodes(ctx, acct.ID)
	require.NoError(t, err)
	require.Zero(t, n, "rolled-back insert must not be visible")
}
