package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/pkg/idx"
)

func TestHousekeepingReapsExpiredRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.registerVerified(t, "reaper@example.com", "hunter2hunter2")
	longAgo := time.Now().UTC().Add(-48 * time.Hour)

	stale := domain.VerificationCode{
		ID:           idx.New().String(),
		AccountID:    acct.ID,
		Purpose:      domain.PurposePasswordReset,
		CodeHash:     "stale",
		AttemptsLeft: 5,
		IssuedAt:     longAgo,
		ExpiresAt:    longAgo.Add(10 * time.Minute),
	}
	require.NoError(t, env.store.VerificationCodes().CreateCode(ctx, stale))

	staleElev := domain.Elevation{
		ID:        idx.New().String(),
		AccountID: acct.ID,
		CreatedAt: longAgo,
		ExpiresAt: longAgo.Add(5 * time.Minute),
	}
	require.NoError(t, env.store.Elevations().CreateElevation(ctx, staleElev))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := NewHousekeepingService(env.store, logger, time.Hour, 24*time.Hour)
	hk.Start()
	hk.Stop()

	_, err := env.store.VerificationCodes().GetActiveCode(ctx, acct.ID, domain.PurposePasswordReset)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.store.Elevations().GetElevation(ctx, staleElev.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
