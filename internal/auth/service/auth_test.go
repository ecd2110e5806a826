package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studyroom/studyroom/internal/auth/domain"
)

func TestRegisterAndVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct, err := env.auth.Register(ctx, "new@example.com", "hunter2hunter2", domain.RoleLearner)
	require.NoError(t, err)
	require.False(t, acct.EmailVerified)
	require.Len(t, env.mailer.verifyCodes, 1)

	// Login before verification is refused.
	_, err = env.auth.Login(ctx, "new@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrEmailNotVerified)

	proof, err := env.auth.VerifyEmail(ctx, "new@example.com", env.mailer.lastVerifyCode())
	require.NoError(t, err)
	require.NotEmpty(t, proof.AccessToken)

	got, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "dup@example.com", "hunter2hunter2", domain.RoleLearner)
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, "DUP@example.com", "anotherpassword", domain.RoleInstructor)
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestVerifyEmailUnknownAddress(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.VerifyEmail(context.Background(), "ghost@example.com", "123456")
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnvConfig(t, CodeServiceConfig{Cooldown: time.Nanosecond}, LockoutGuardConfig{}, SessionServiceConfig{})
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "resend@example.com", "hunter2hunter2", domain.RoleLearner)
	require.NoError(t, err)

	require.NoError(t, env.auth.ResendVerification(ctx, "resend@example.com"))
	require.Len(t, env.mailer.verifyCodes, 2)

	// The original code was superseded; only the fresh one works.
	_, err = env.auth.VerifyEmail(ctx, "resend@example.com", env.mailer.lastVerifyCode())
	require.NoError(t, err)

	// Unknown and already-verified addresses succeed silently.
	require.NoError(t, env.auth.ResendVerification(ctx, "ghost@example.com"))
	require.NoError(t, env.auth.ResendVerification(ctx, "resend@example.com"))
	require.Len(t, env.mailer.verifyCodes, 2)
}

func TestResendVerificationCooldown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "throttle@example.com", "hunter2hunter2", domain.RoleLearner)
	require.NoError(t, err)

	err = env.auth.ResendVerification(ctx, "throttle@example.com")
	require.ErrorIs(t, err, ErrTooSoon)
}

func TestLoginWithoutMFA(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "plain@example.com", "hunter2hunter2")

	result, err := env.auth.Login(ctx, "plain@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotNil(t, result.Proof)
	require.Nil(t, result.MFA)
	require.Equal(t, domain.RoleLearner, result.Proof.Role)
}

func TestLoginUniformFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "known@example.com", "hunter2hunter2")

	// Wrong password and unknown email are indistinguishable.
	_, err := env.auth.Login(ctx, "known@example.com", "wrongpassword")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "unknown@example.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithMFAEnabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.registerVerified(t, "mfalogin@example.com", "hunter2hunter2")
	enableMFA(t, env, acct.ID)

	result, err := env.auth.Login(ctx, "mfalogin@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Nil(t, result.Proof)
	require.NotNil(t, result.MFA)
	require.True(t, result.MFA.MFARequired)
	require.NotEmpty(t, result.MFA.ElevationToken)
}

func TestLockoutEngagesAndBacksOff(t *testing.T) {
	env := newTestEnvConfig(t, CodeServiceConfig{},
		LockoutGuardConfig{Threshold: 3, BaseWindow: time.Minute, MaxWindow: time.Hour},
		SessionServiceConfig{})
	ctx := context.Background()
	acct := env.registerVerified(t, "locked@example.com", "hunter2hunter2")

	for range 3 {
		_, err := env.auth.Login(ctx, "locked@example.com", "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Window is open: even the right password is refused.
	_, err := env.auth.Login(ctx, "locked@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrLocked)

	got, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.LockoutStrikes)
	require.NotNil(t, got.LockedUntil)
	first := *got.LockedUntil

	// Simulate the window elapsing, then strike again: the second
	// window doubles.
	require.NoError(t, env.store.Accounts().SetLockout(ctx, acct.ID, time.Now().UTC().Add(-time.Second), 1))
	for range 3 {
		_, err := env.auth.Login(ctx, "locked@example.com", "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	got, err = env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.LockoutStrikes)
	require.NotNil(t, got.LockedUntil)
	require.True(t, got.LockedUntil.Sub(first) > 30*time.Second, "second window should be roughly twice the first")
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	env := newTestEnvConfig(t, CodeServiceConfig{},
		LockoutGuardConfig{Threshold: 3}, SessionServiceConfig{})
	ctx := context.Background()
	acct := env.registerVerified(t, "reset@example.com", "hunter2hunter2")

	for range 2 {
		_, err := env.auth.Login(ctx, "reset@example.com", "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := env.auth.Login(ctx, "reset@example.com", "hunter2hunter2")
	require.NoError(t, err)

	got, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLogins)

	// The counter starts over; two more misses don't lock.
	for range 2 {
		_, err := env.auth.Login(ctx, "reset@example.com", "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = env.auth.Login(ctx, "reset@example.com", "hunter2hunter2")
	require.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnvConfig(t, CodeServiceConfig{Cooldown: time.Nanosecond}, LockoutGuardConfig{}, SessionServiceConfig{})
	ctx := context.Background()
	acct := env.registerVerified(t, "forgot@example.com", "hunter2hunter2")

	// Unknown email succeeds silently, no mail sent.
	require.NoError(t, env.auth.ForgotPassword(ctx, "ghost@example.com"))
	require.Empty(t, env.mailer.resetCodes)

	require.NoError(t, env.auth.ForgotPassword(ctx, "forgot@example.com"))
	require.Len(t, env.mailer.resetCodes, 1)

	before, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)

	err = env.auth.ResetPassword(ctx, "forgot@example.com", env.mailer.lastResetCode(), "newpassword123")
	require.NoError(t, err)

	// Old password dead, new one live.
	_, err = env.auth.Login(ctx, "forgot@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	result, err := env.auth.Login(ctx, "forgot@example.com", "newpassword123")
	require.NoError(t, err)
	require.NotNil(t, result.Proof)

	// Valid-since moved forward, retiring outstanding proofs.
	after, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.True(t, after.TokenValidSince.After(before.TokenValidSince))
}

func TestResetPasswordClearsLockout(t *testing.T) {
	env := newTestEnvConfig(t, CodeServiceConfig{Cooldown: time.Nanosecond},
		LockoutGuardConfig{Threshold: 2}, SessionServiceConfig{})
	ctx := context.Background()
	acct := env.registerVerified(t, "lockreset@example.com", "hunter2hunter2")

	for range 2 {
		_, err := env.auth.Login(ctx, "lockreset@example.com", "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := env.auth.Login(ctx, "lockreset@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, env.auth.ForgotPassword(ctx, "lockreset@example.com"))
	require.NoError(t, env.auth.ResetPassword(ctx, "lockreset@example.com", env.mailer.lastResetCode(), "newpassword123"))

	got, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Nil(t, got.LockedUntil)
	require.Zero(t, got.LockoutStrikes)

	result, err := env.auth.Login(ctx, "lockreset@example.com", "newpassword123")
	require.NoError(t, err)
	require.NotNil(t, result.Proof)
}

func TestResetPasswordBadCode(t *testing.T) {
	env := newTestEnvConfig(t, CodeServiceConfig{Cooldown: time.Nanosecond}, LockoutGuardConfig{}, SessionServiceConfig{})
	ctx := context.Background()
	env.registerVerified(t, "badreset@example.com", "hunter2hunter2")

	require.NoError(t, env.auth.ForgotPassword(ctx, "badreset@example.com"))

	wrong := "000000"
	if wrong == env.mailer.lastResetCode() {
		wrong = "000001"
	}
	err := env.auth.ResetPassword(ctx, "badreset@example.com", wrong, "newpassword123")
	require.ErrorIs(t, err, ErrInvalidCode)

	// Old password still works after the failed reset.
	result, err := env.auth.Login(ctx, "badreset@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotNil(t, result.Proof)
}
