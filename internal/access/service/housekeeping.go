package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/store"
)

// Sweeper is anything with in-memory state that needs periodic pruning, such
// as the memory rate-limit store.
type Sweeper interface {
	Sweep() int
}

// HousekeepingService periodically deletes expired session records and invite
// tokens so the database does not grow without bound, and sweeps any
// registered in-memory stores.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Sweepers []Sweeper

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration, sweepers ...Sweeper) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Sweepers: sweepers,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the worker, blocking until any in-progress cleanup is done.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
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

// cleanup performs the actual deletion of expired records. Each deletion is
// independent; a failure in one does not stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()
	s.Logger.Debug("starting housekeeping cleanup")

	if err := s.Store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}

	if err := s.Store.Invites().DeleteExpiredInvites(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired invites", "error", err)
	}

	for _, sw := range s.Sweepers {
		pruned := sw.Sweep()
		if pruned > 0 {
			s.Logger.Debug("swept in-memory store", "pruned", pruned)
		}
	}

	s.Logger.Debug("housekeeping cleanup completed")
}
