package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/pkg/idx"
	"github.com/studyroom/studyroom/pkg/jwtx"
)

const (
	DefaultSessionTTL           = time.Hour
	DefaultElevationTTL         = 5 * time.Minute
	DefaultMaxElevationAttempts = 5
)

// SessionServiceConfig tunes proof and elevation lifetimes.
type SessionServiceConfig struct {
	Issuer               string
	SessionTTL           time.Duration
	ElevationTTL         time.Duration
	MaxElevationAttempts int
}

// SessionService mints full session proofs (EdDSA JWTs) and short-lived
// single-use elevation tokens for the MFA leg of login. Elevation
// tokens are opaque IDs backed by store rows, never JWTs, so they can
// not pass bearer verification anywhere else.
type SessionService struct {
	store  store.Store
	signer *jwtx.Signer
	mfa    *MFAService

	issuer       string
	sessionTTL   time.Duration
	elevationTTL time.Duration
	maxAttempts  int
}

func NewSessionService(st store.Store, signer *jwtx.Signer, mfa *MFAService, cfg SessionServiceConfig) *SessionService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ElevationTTL <= 0 {
		cfg.ElevationTTL = DefaultElevationTTL
	}
	if cfg.MaxElevationAttempts <= 0 {
		cfg.MaxElevationAttempts = DefaultMaxElevationAttempts
	}
	return &SessionService{
		store:        st,
		signer:       signer,
		mfa:          mfa,
		issuer:       cfg.Issuer,
		sessionTTL:   cfg.SessionTTL,
		elevationTTL: cfg.ElevationTTL,
		maxAttempts:  cfg.MaxElevationAttempts,
	}
}

// IssueFull signs a session proof for the account. The proof embeds the
// account's current valid-since instant so a later password change
// retires it.
func (s *SessionService) IssueFull(account domain.Account) (domain.SessionProof, error) {
	claims := jwtx.NewSessionClaims(
		account.ID,
		string(account.Role),
		s.issuer,
		account.TokenValidSince,
		s.sessionTTL,
		time.Now().UTC(),
	)
	token, err := s.signer.Sign(claims)
	if err != nil {
		return domain.SessionProof{}, fmt.Errorf("sign session proof: %w", err)
	}
	return domain.SessionProof{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.sessionTTL.Seconds()),
		Role:        account.Role,
	}, nil
}

// IssueElevation creates a pending-MFA token for the account and
// returns its opaque ID along with the remaining lifetime in seconds.
func (s *SessionService) IssueElevation(ctx context.Context, account domain.Account) (domain.MFARequired, error) {
	now := time.Now().UTC()
	e := domain.Elevation{
		ID:        idx.New().String(),
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.elevationTTL),
	}
	if err := s.store.Elevations().CreateElevation(ctx, e); err != nil {
		return domain.MFARequired{}, fmt.Errorf("create elevation: %w", err)
	}

	methods := []string{"totp"}
	if n, err := s.store.BackupCodes().CountBackupCodes(ctx, account.ID); err == nil && n > 0 {
		methods = append(methods, "backup_code")
	}

	return domain.MFARequired{
		MFARequired:    true,
		ElevationToken: e.ID,
		ExpiresIn:      int64(s.elevationTTL.Seconds()),
		Methods:        methods,
	}, nil
}

// RedeemElevation exchanges an elevation token plus a second factor for
// a full session proof. A failed factor spends one attempt; spending
// the last deletes the token outright. Redemption consumes the token
// with a conditional update so a replay fails with ErrAlreadyUsed even
// when the factor would still verify.
func (s *SessionService) RedeemElevation(ctx context.Context, token, code string, backup bool) (domain.SessionProof, error) {
	now := time.Now().UTC()

	e, err := s.store.Elevations().GetElevation(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return domain.SessionProof{}, ErrAlreadyUsed
	}
	if err != nil {
		return domain.SessionProof{}, fmt.Errorf("load elevation: %w", err)
	}
	if e.Consumed() {
		return domain.SessionProof{}, ErrAlreadyUsed
	}
	if e.Expired(now) {
		return domain.SessionProof{}, ErrExpired
	}

	if err := s.mfa.Challenge(ctx, e.AccountID, code, backup); err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrExhausted):
			attempts, incErr := s.store.Elevations().IncrementElevationAttempts(ctx, e.ID)
			if incErr != nil {
				return domain.SessionProof{}, fmt.Errorf("record failed attempt: %w", incErr)
			}
			if attempts >= s.maxAttempts {
				if delErr := s.store.Elevations().DeleteElevation(ctx, e.ID); delErr != nil {
					return domain.SessionProof{}, fmt.Errorf("retire elevation: %w", delErr)
				}
				return domain.SessionProof{}, ErrAttemptsExceeded
			}
		}
		return domain.SessionProof{}, err
	}

	ok, err := s.store.Elevations().ConsumeElevation(ctx, e.ID, now)
	if err != nil {
		return domain.SessionProof{}, fmt.Errorf("consume elevation: %w", err)
	}
	if !ok {
		return domain.SessionProof{}, ErrAlreadyUsed
	}

	account, err := s.store.Accounts().GetAccountByID(ctx, e.AccountID)
	if err != nil {
		return domain.SessionProof{}, fmt.Errorf("load account: %w", err)
	}
	return s.IssueFull(account)
}

// nextValidSince returns a valid-since instant strictly later, at unix
// second granularity, than the previous one. The vst claim is compared
// in whole seconds, so a bump landing in the same second as issuance
// would otherwise fail to revoke anything.
func nextValidSince(prev time.Time) time.Time {
	now := time.Now().UTC()
	if now.Unix() <= prev.Unix() {
		return prev.Add(time.Second)
	}
	return now
}

// ValidateProof rejects proofs issued before the account's current
// valid-since instant and proofs for deactivated accounts. It runs on
// every authenticated request, after signature and expiry checks.
func (s *SessionService) ValidateProof(ctx context.Context, claims jwtx.Claims) error {
	account, err := s.store.Accounts().GetAccountByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return ErrProofRevoked
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if account.Deactivated() {
		return ErrAccountDeactivated
	}
	if claims.ValidSince < account.TokenValidSince.Unix() {
		return ErrProofRevoked
	}
	return nil
}
