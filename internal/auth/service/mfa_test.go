package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/studyroom/studyroom/internal/auth/domain"
)

func TestMFASetupActivateFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.registerVerified(t, "mfa@example.com", "hunter2hunter2")

	setup, err := env.mfa.BeginSetup(ctx, acct.ID)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.ProvisioningURI, "otpauth://totp/")
	require.Len(t, setup.BackupCodes, DefaultBackupCodeCount)

	got, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MFAPending, got.MFAState)

	// Wrong code leaves setup pending.
	err = env.mfa.Activate(ctx, acct.ID, "000000")
	require.ErrorIs(t, err, ErrInvalidCode)

	code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, env.mfa.Activate(ctx, acct.ID, code))

	got, err = env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MFAEnabled, got.MFAState)

	// A second enrollment while enabled is rejected.
	_, err = env.mfa.BeginSetup(ctx, acct.ID)
	require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
}

func TestMFAActivateRequiresPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.registerVerified(t, "notpending@example.com", "hunter2hunter2")

	err := env.mfa.Activate(ctx, acct.ID, "123456")
	require.ErrorIs(t, err, ErrMFANotPending)
}

func TestMFAChallengeSkew(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.registerVerified(t, "skew@example.com", "hunter2hunter2")
	setup := enableMFA(t, env, acct.ID)

	// A code from the previous 30s step still validates (one step of
	// skew), one from two steps back does not.
	prev, err := totp.GenerateCode(setup.Secret, time.Now().UTC().Add(-30*time.Second))
	require.NoError(t, err)
	require.NoError(t, env.mfa.Challenge(ctx, acct.ID, prev, false))

	stale, err := totp.GenerateCode(setup.Secret, time.Now().UTC().Add(-90*time.Second))
	require.NoError(t, err)
	err = env.mfa.Challenge(ctx, acct.ID, stale, false)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestMFABackupCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.registerVerified(t, "backup@example.com", "hunter2hunter2")
	setup := enableMFA(t, env, acct.ID)

	backup := setup.BackupCodes[0]
	require.NoError(t, env.mfa.Challenge(ctx, acct.ID, backup, true))

	// Single-use: the same code fails immediately after.
	err := env.mfa.Challenge(ctx, acct.ID, backup, true)
	require.ErrorIs(t, err, ErrInvalidCode)

	// Burn the rest; the exhausted pool reports Exhausted, not Invalid.
	for _, c := range setup.BackupCodes[1:] {
		require.NoError(t, env.mfa.Challenge(ctx, acct.ID, c, true))
	}
	err = env.mfa.Challenge(ctx, acct.ID, setup.BackupCodes[1], true)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestMFADisableClearsEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.registerVerified(t, "disable@example.com", "hunter2hunter2")
	setup := enableMFA(t, env, acct.ID)

	require.NoError(t, env.mfa.Disable(ctx, acct.ID))

	got, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MFADisabled, got.MFAState)
	require.Nil(t, got.MFASecret)

	n, err := env.store.BackupCodes().CountBackupCodes(ctx, acct.ID)
	require.NoError(t, err)
	require.Zero(t, n)

	// Old backup codes are gone along with the secret.
	err = env.mfa.Challenge(ctx, acct.ID, setup.BackupCodes[0], true)
	require.ErrorIs(t, err, ErrMFANotEnabled)

	require.ErrorIs(t, env.mfa.Disable(ctx, acct.ID), ErrMFANotEnabled)
}

// enableMFA walks an account through setup and activation.
func enableMFA(t *testing.T, env *testEnv, accountID string) domain.MFASetup {
	t.Helper()
	ctx := context.Background()

	setup, err := env.mfa.BeginSetup(ctx, accountID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, env.mfa.Activate(ctx, accountID, code))
	return setup
}
