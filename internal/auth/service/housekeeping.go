package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/studyroom/studyroom/internal/auth/store"
)

// HousekeepingService periodically deletes expired verification codes
// and elevation tokens so the tables don't grow without bound. Rows are
// only reaped once they are well past their expiry; expiry itself is
// always enforced at read time.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Grace    time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the reaper. A non-positive interval
// defaults to 1 hour, a non-positive grace to 24 hours.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, grace time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Grace:    grace,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut
// it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes long-expired rows. Each table is independent; a
// failure on one does not stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.Grace)

	if err := s.Store.VerificationCodes().DeleteExpiredCodes(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete expired verification codes", "error", err)
	} else {
		s.Logger.Debug("deleted expired verification codes")
	}

	if err := s.Store.Elevations().DeleteExpiredElevations(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete expired elevations", "error", err)
	} else {
		s.Logger.Debug("deleted expired elevations")
	}
}
