package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/inknechoes/backend/internal/services"
)

// SweepManager periodically marks expired sessions inactive so the session
// ledger reflects reality without waiting for the next read.
type SweepManager struct {
	sessions *services.SessionService
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweepManager creates a new sweep manager
func NewSweepManager(sessions *services.SessionService, logger *slog.Logger, interval time.Duration) *SweepManager {
	return &SweepManager{
		sessions: sessions,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep. Blocks until Stop is called or the
// context is cancelled; run it in its own goroutine.
func (sm *SweepManager) Start(ctx context.Context) {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	sm.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			sm.runSweep(ctx)
		case <-sm.stopCh:
			sm.logger.Info("session sweep stopped")
			return
		case <-ctx.Done():
			sm.logger.Info("session sweep context cancelled")
			return
		}
	}
}

func (sm *SweepManager) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	swept, err := sm.sessions.SweepExpired(sweepCtx)
	if err != nil {
		sm.logger.Error("session sweep failed", slog.Any("error", err))
		return
	}

	if swept > 0 {
		sm.logger.Info("session sweep completed", slog.Int64("sessions_deactivated", swept))
	}
}

// Stop signals the sweep manager to stop
func (sm *SweepManager) Stop() {
	close(sm.stopCh)
}
