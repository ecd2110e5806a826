package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/pkg/cryptox"
)

const DefaultBackupCodeCount = 10

// MFAServiceConfig tunes TOTP enrollment.
type MFAServiceConfig struct {
	Issuer          string
	BackupCodeCount int
}

// MFAService owns the TOTP enrollment state machine and challenge
// checks. Secrets live on the account row; backup codes are stored as
// fingerprints only.
type MFAService struct {
	store store.Store

	issuer      string
	backupCount int
}

func NewMFAService(st store.Store, cfg MFAServiceConfig) *MFAService {
	if cfg.Issuer == "" {
		cfg.Issuer = "studyroom"
	}
	if cfg.BackupCodeCount <= 0 {
		cfg.BackupCodeCount = DefaultBackupCodeCount
	}
	return &MFAService{
		store:       st,
		issuer:      cfg.Issuer,
		backupCount: cfg.BackupCodeCount,
	}
}

// BeginSetup generates a fresh secret and backup codes and parks the
// account in the pending state. Calling it again before Activate
// replaces the pending secret and codes wholesale. The returned
// plaintext backup codes are shown exactly once.
func (s *MFAService) BeginSetup(ctx context.Context, accountID string) (domain.MFASetup, error) {
	acct, err := s.store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return domain.MFASetup{}, fmt.Errorf("load account: %w", err)
	}
	if acct.MFAState == domain.MFAEnabled {
		return domain.MFASetup{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: acct.Email,
	})
	if err != nil {
		return domain.MFASetup{}, fmt.Errorf("generate totp key: %w", err)
	}

	codes := make([]string, s.backupCount)
	for i := range codes {
		codes[i], err = cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return domain.MFASetup{}, fmt.Errorf("generate backup code: %w", err)
		}
	}

	secret := key.Secret()
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().SetMFAState(ctx, accountID, domain.MFAPending, &secret); err != nil {
			return fmt.Errorf("set pending state: %w", err)
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, accountID); err != nil {
			return fmt.Errorf("clear backup codes: %w", err)
		}
		for _, c := range codes {
			if err := tx.BackupCodes().CreateBackupCode(ctx, accountID, cryptox.FingerprintToken(c)); err != nil {
				return fmt.Errorf("store backup code: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.MFASetup{}, err
	}

	return domain.MFASetup{
		Secret:          secret,
		ProvisioningURI: key.URL(),
		BackupCodes:     codes,
	}, nil
}

// Activate confirms the pending secret with a live TOTP code and flips
// the account to enabled. A wrong code leaves the setup pending.
func (s *MFAService) Activate(ctx context.Context, accountID, code string) error {
	acct, err := s.store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acct.MFAState != domain.MFAPending || acct.MFASecret == nil {
		return ErrMFANotPending
	}

	if !validateTOTP(code, *acct.MFASecret) {
		return ErrInvalidCode
	}

	secret := *acct.MFASecret
	if err := s.store.Accounts().SetMFAState(ctx, accountID, domain.MFAEnabled, &secret); err != nil {
		return fmt.Errorf("enable mfa: %w", err)
	}
	return nil
}

// Challenge verifies a login-time second factor. TOTP codes validate
// against the enabled secret with one step of clock skew; backup codes
// are consumed on use. When every backup code has been spent the backup
// path reports ErrExhausted rather than ErrInvalidCode.
func (s *MFAService) Challenge(ctx context.Context, accountID, code string, backup bool) error {
	acct, err := s.store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acct.MFAState != domain.MFAEnabled || acct.MFASecret == nil {
		return ErrMFANotEnabled
	}

	if backup {
		left, err := s.store.BackupCodes().CountBackupCodes(ctx, accountID)
		if err != nil {
			return fmt.Errorf("count backup codes: %w", err)
		}
		if left == 0 {
			return ErrExhausted
		}
		ok, err := s.store.BackupCodes().ConsumeBackupCode(ctx, accountID, cryptox.FingerprintToken(code))
		if err != nil {
			return fmt.Errorf("consume backup code: %w", err)
		}
		if !ok {
			return ErrInvalidCode
		}
		return nil
	}

	if !validateTOTP(code, *acct.MFASecret) {
		return ErrInvalidCode
	}
	return nil
}

// Disable clears the secret, drops all backup codes and returns the
// account to the disabled state in one transaction.
func (s *MFAService) Disable(ctx context.Context, accountID string) error {
	acct, err := s.store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acct.MFAState == domain.MFADisabled {
		return ErrMFANotEnabled
	}

	return s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().SetMFAState(ctx, accountID, domain.MFADisabled, nil); err != nil {
			return fmt.Errorf("disable mfa: %w", err)
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, accountID); err != nil {
			return fmt.Errorf("drop backup codes: %w", err)
		}
		return nil
	})
}

// validateTOTP accepts one 30s step of skew either side of now, which
// tolerates modest clock drift on authenticator devices.
func validateTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
