package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/pkg/cryptox"
	"github.com/studyroom/studyroom/pkg/idx"
)

const (
	DefaultCodeTTL      = 10 * time.Minute
	DefaultCodeCooldown = 2 * time.Minute
	DefaultCodeAttempts = 5
	DefaultCodeDigits   = 6
)

// CodeServiceConfig tunes one-time numeric code issuance. Zero values
// fall back to the package defaults.
type CodeServiceConfig struct {
	TTL      time.Duration
	Cooldown time.Duration
	Attempts int
	Digits   int
}

// CodeService issues and verifies short-lived numeric codes for email
// verification and password resets. Only the fingerprint of a code is
// persisted; the plaintext exists solely in the outbound mail.
type CodeService struct {
	store store.Store

	ttl      time.Duration
	cooldown time.Duration
	attempts int
	digits   int
}

func NewCodeService(st store.Store, cfg CodeServiceConfig) *CodeService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCodeTTL
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCodeCooldown
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultCodeAttempts
	}
	if cfg.Digits <= 0 {
		cfg.Digits = DefaultCodeDigits
	}
	return &CodeService{
		store:    st,
		ttl:      cfg.TTL,
		cooldown: cfg.Cooldown,
		attempts: cfg.Attempts,
		digits:   cfg.Digits,
	}
}

// Issue mints a fresh code for the account and purpose, invalidating
// any earlier active code in the same transaction. Re-issuing within
// the cooldown window returns ErrTooSoon and leaves the existing code
// untouched.
func (s *CodeService) Issue(ctx context.Context, accountID string, purpose domain.CodePurpose) (string, error) {
	now := time.Now().UTC()

	prior, err := s.store.VerificationCodes().GetActiveCode(ctx, accountID, purpose)
	switch {
	case err == nil:
		if now.Sub(prior.IssuedAt) < s.cooldown {
			return "", ErrTooSoon
		}
	case errors.Is(err, store.ErrNotFound):
		// First issue for this purpose.
	default:
		return "", fmt.Errorf("load active code: %w", err)
	}

	plaintext, err := cryptox.GenerateNumericCode(s.digits)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	code := domain.VerificationCode{
		ID:           idx.New().String(),
		AccountID:    accountID,
		Purpose:      purpose,
		CodeHash:     cryptox.FingerprintToken(plaintext),
		AttemptsLeft: s.attempts,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.VerificationCodes().InvalidateActiveCodes(ctx, accountID, purpose, now); err != nil {
			return fmt.Errorf("invalidate prior codes: %w", err)
		}
		if err := tx.VerificationCodes().CreateCode(ctx, code); err != nil {
			return fmt.Errorf("create code: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return plaintext, nil
}

// Verify checks the submitted code against the account's active code
// for the purpose and consumes it on success. A wrong guess spends one
// attempt; spending the last attempt reports ErrAttemptsExceeded.
func (s *CodeService) Verify(ctx context.Context, accountID string, purpose domain.CodePurpose, submitted string) error {
	now := time.Now().UTC()

	code, err := s.store.VerificationCodes().GetActiveCode(ctx, accountID, purpose)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("load active code: %w", err)
	}

	if code.AttemptsLeft <= 0 {
		return ErrAttemptsExceeded
	}
	if code.Expired(now) {
		return ErrExpired
	}

	fp := cryptox.FingerprintToken(submitted)
	if subtle.ConstantTimeCompare([]byte(fp), []byte(code.CodeHash)) != 1 {
		left, err := s.store.VerificationCodes().DecrementAttempts(ctx, code.ID)
		if err != nil {
			return fmt.Errorf("decrement attempts: %w", err)
		}
		if left <= 0 {
			return ErrAttemptsExceeded
		}
		return ErrInvalidCode
	}

	ok, err := s.store.VerificationCodes().ConsumeCode(ctx, code.ID, now)
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	if !ok {
		// Lost a race with a concurrent verify of the same code.
		return ErrInvalidCode
	}
	return nil
}

// Cooldown reports the configured re-issue window, exposed for the
// Retry-After hint on throttled resend requests.
func (s *CodeService) Cooldown() time.Duration { return s.cooldown }
