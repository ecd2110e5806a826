package service

import (
	"context"
	"fmt"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
)

const (
	DefaultLockoutThreshold  = 5
	DefaultLockoutBaseWindow = time.Minute
	DefaultLockoutMaxWindow  = time.Hour
)

// LockoutGuardConfig tunes the per-account failure lockout.
type LockoutGuardConfig struct {
	Threshold  int
	BaseWindow time.Duration
	MaxWindow  time.Duration
}

// LockoutGuard tracks consecutive failed logins per account and opens
// a lockout window once the threshold is hit. Each further lockout
// doubles the window up to the cap. The guard is separate from the
// per-source rate limiter on the HTTP layer.
type LockoutGuard struct {
	store store.Store

	threshold  int
	baseWindow time.Duration
	maxWindow  time.Duration
}

func NewLockoutGuard(st store.Store, cfg LockoutGuardConfig) *LockoutGuard {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultLockoutThreshold
	}
	if cfg.BaseWindow <= 0 {
		cfg.BaseWindow = DefaultLockoutBaseWindow
	}
	if cfg.MaxWindow <= 0 {
		cfg.MaxWindow = DefaultLockoutMaxWindow
	}
	return &LockoutGuard{
		store:      st,
		threshold:  cfg.Threshold,
		baseWindow: cfg.BaseWindow,
		maxWindow:  cfg.MaxWindow,
	}
}

// Check reports ErrLocked while the account's lockout window is open.
func (g *LockoutGuard) Check(account domain.Account) error {
	if account.Locked(time.Now().UTC()) {
		return ErrLocked
	}
	return nil
}

// RecordFailure counts one failed login. Reaching the threshold opens
// a lockout window sized by the account's strike history.
func (g *LockoutGuard) RecordFailure(ctx context.Context, account domain.Account) error {
	failures, err := g.store.Accounts().IncrementFailedLogins(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("count failure: %w", err)
	}
	if failures < g.threshold {
		return nil
	}

	strikes := account.LockoutStrikes + 1
	until := time.Now().UTC().Add(g.window(strikes))
	if err := g.store.Accounts().SetLockout(ctx, account.ID, until, strikes); err != nil {
		return fmt.Errorf("open lockout: %w", err)
	}
	return nil
}

// RecordSuccess clears the consecutive-failure count. Strike history is
// kept so repeat lockouts continue to back off.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, accountID string) error {
	if err := g.store.Accounts().ResetFailedLogins(ctx, accountID); err != nil {
		return fmt.Errorf("reset failures: %w", err)
	}
	return nil
}

// Clear wipes both the open window and the strike history. Used after a
// verified password reset.
func (g *LockoutGuard) Clear(ctx context.Context, accountID string) error {
	if err := g.store.Accounts().ClearLockout(ctx, accountID); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

func (g *LockoutGuard) window(strikes int) time.Duration {
	w := g.baseWindow
	for i := 1; i < strikes; i++ {
		w *= 2
		if w >= g.maxWindow {
			return g.maxWindow
		}
	}
	return w
}
