package service

import (
	"context"
	"fmt"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
)

// AccountService exposes account self-service reads and the small set
// of profile mutations that sit outside the auth flows.
type AccountService struct {
	store store.Store
}

func NewAccountService(st store.Store) *AccountService {
	return &AccountService{store: st}
}

func (s *AccountService) Get(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

func (s *AccountService) CompleteProfile(ctx context.Context, accountID string) error {
	if err := s.store.Accounts().SetProfileComplete(ctx, accountID); err != nil {
		return fmt.Errorf("mark profile complete: %w", err)
	}
	return nil
}

// Deactivate retires the account and bumps valid-since so outstanding
// session proofs stop validating immediately.
func (s *AccountService) Deactivate(ctx context.Context, accountID string) error {
	account, err := s.store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	now := time.Now().UTC()
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().SetDeactivated(ctx, accountID, now); err != nil {
			return fmt.Errorf("deactivate account: %w", err)
		}
		if err := tx.Accounts().BumpTokenValidSince(ctx, accountID, nextValidSince(account.TokenValidSince)); err != nil {
			return fmt.Errorf("bump valid since: %w", err)
		}
		return nil
	})
}
