package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/pkg/cryptox"
	"github.com/studyroom/studyroom/pkg/idx"
	"github.com/studyroom/studyroom/pkg/slogx"
)

// LoginResult carries the outcome of a password login. Exactly one of
// Proof and MFA is set: Proof when the account has no second factor,
// MFA when the caller must redeem an elevation token first.
type LoginResult struct {
	Proof *domain.SessionProof
	MFA   *domain.MFARequired
}

// AuthService orchestrates registration, login and password recovery
// across the code, MFA, session and lockout services.
type AuthService struct {
	store    store.Store
	codes    *CodeService
	mfa      *MFAService
	sessions *SessionService
	guard    *LockoutGuard
	mailer   Mailer
	pool     *cryptox.HashPool

	// decoyHash is verified against for unknown emails so that a login
	// probe costs the same whether or not the account exists.
	decoyHash string
}

func NewAuthService(
	st store.Store,
	codes *CodeService,
	mfa *MFAService,
	sessions *SessionService,
	guard *LockoutGuard,
	mailer Mailer,
	pool *cryptox.HashPool,
) (*AuthService, error) {
	decoy, err := cryptox.HashPassword(idx.New().String())
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}
	return &AuthService{
		store:     st,
		codes:     codes,
		mfa:       mfa,
		sessions:  sessions,
		guard:     guard,
		mailer:    mailer,
		pool:      pool,
		decoyHash: decoy,
	}, nil
}

// Register creates an unverified account and mails it a verification
// code. A reused email address, in any casing, fails with
// ErrDuplicateEmail.
func (s *AuthService) Register(ctx context.Context, email, password string, role domain.Role) (domain.Account, error) {
	hash, err := s.pool.Hash(ctx, password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := domain.Account{
		ID:              idx.New().String(),
		Email:           email,
		PasswordHash:    hash,
		Role:            role,
		MFAState:        domain.MFADisabled,
		TokenValidSince: now,
	}
	if err := s.store.Accounts().CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrDuplicateEmail
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	code, err := s.codes.Issue(ctx, account.ID, domain.PurposeEmailVerify)
	if err != nil {
		return domain.Account{}, fmt.Errorf("issue verification code: %w", err)
	}
	if err := s.mailer.SendVerificationCode(ctx, account.Email, code); err != nil {
		// The account exists either way; the code can be re-sent.
		slogx.FromContext(ctx).Warn("verification mail failed", "account_id", account.ID, "error", err)
	}
	return account, nil
}

// VerifyEmail consumes a verification code and marks the account
// verified, returning a full session proof so the client can proceed
// straight to the app. Unknown emails report ErrInvalidCode to keep
// the endpoint from confirming which addresses are registered.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (domain.SessionProof, error) {
	account, err := s.store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.SessionProof{}, ErrInvalidCode
	}
	if err != nil {
		return domain.SessionProof{}, fmt.Errorf("load account: %w", err)
	}

	if err := s.codes.Verify(ctx, account.ID, domain.PurposeEmailVerify, code); err != nil {
		return domain.SessionProof{}, err
	}
	if err := s.store.Accounts().SetEmailVerified(ctx, account.ID); err != nil {
		return domain.SessionProof{}, fmt.Errorf("mark verified: %w", err)
	}
	return s.sessions.IssueFull(account)
}

// ResendVerification re-issues the email verification code, subject to
// the cooldown. Unknown or already-verified emails succeed silently.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	account, err := s.store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if account.EmailVerified {
		return nil
	}

	code, err := s.codes.Issue(ctx, account.ID, domain.PurposeEmailVerify)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerificationCode(ctx, account.Email, code); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

// Login checks the password and either issues a full proof or, when
// MFA is enabled, an elevation token the client must redeem with a
// second factor. Unknown email and wrong password are indistinguishable
// to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	account, err := s.store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Burn a hash verification so the miss costs the same as a
		// wrong password against a real account.
		_ = s.pool.Verify(ctx, idx.New().String(), s.decoyHash)
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load account: %w", err)
	}

	if err := s.guard.Check(account); err != nil {
		return LoginResult{}, err
	}

	if err := s.pool.Verify(ctx, password, account.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			if gerr := s.guard.RecordFailure(ctx, account); gerr != nil {
				return LoginResult{}, gerr
			}
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}

	if account.Deactivated() {
		return LoginResult{}, ErrAccountDeactivated
	}
	if !account.EmailVerified {
		return LoginResult{}, ErrEmailNotVerified
	}

	if err := s.guard.RecordSuccess(ctx, account.ID); err != nil {
		return LoginResult{}, err
	}

	if account.MFAState == domain.MFAEnabled {
		mfa, err := s.sessions.IssueElevation(ctx, account)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{MFA: &mfa}, nil
	}

	proof, err := s.sessions.IssueFull(account)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Proof: &proof}, nil
}

// ForgotPassword mails a reset code. Unknown emails succeed silently so
// the endpoint cannot be used to enumerate accounts; the cooldown still
// applies to known ones.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	code, err := s.codes.Issue(ctx, account.ID, domain.PurposePasswordReset)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordResetCode(ctx, account.Email, code); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset code, installs the new password hash
// and bumps the account's valid-since so every outstanding session
// proof dies. Any open lockout is cleared along with its strike
// history.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	account, err := s.store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	if err := s.codes.Verify(ctx, account.ID, domain.PurposePasswordReset, code); err != nil {
		return err
	}

	hash, err := s.pool.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.Accounts().UpdatePasswordHash(ctx, account.ID, hash, nextValidSince(account.TokenValidSince)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.guard.Clear(ctx, account.ID); err != nil {
		return err
	}
	return nil
}
