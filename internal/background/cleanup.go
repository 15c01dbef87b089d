package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/metrics"
)

// AttemptCleaner drops login attempts past their retention time
type AttemptCleaner interface {
	DeleteExpiredAttempts(ctx context.Context) (int64, error)
}

// ResetCleaner drops two-factor reset pairs past their expiry
type ResetCleaner interface {
	ClearExpiredResets(ctx context.Context) (int64, error)
}

// SessionSweeper evicts idle client sessions from memory
type SessionSweeper interface {
	Sweep(idle time.Duration) int
	Len() int
}

// Purger drops expired entries from an in-memory store
type Purger interface {
	Purge() int
}

// CleanupConfig sets how often each kind of cleanup runs
type CleanupConfig struct {
	Interval      time.Duration // database tasks
	SweepInterval time.Duration // in-memory tasks
	SessionIdle   time.Duration
}

// CleanupManager periodically removes expired login state
type CleanupManager struct {
	attempts AttemptCleaner
	resets   ResetCleaner
	sessions SessionSweeper
	purgers  []Purger
	metrics  *metrics.Metrics
	logger   *slog.Logger
	config   CleanupConfig

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. Any collaborator may be
// nil; its task is then skipped.
func NewCleanupManager(
	attempts AttemptCleaner,
	resets ResetCleaner,
	sessions SessionSweeper,
	m *metrics.Metrics,
	logger *slog.Logger,
	config CleanupConfig,
	purgers ...Purger,
) *CleanupManager {
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	return &CleanupManager{
		attempts: attempts,
		resets:   resets,
		sessions: sessions,
		purgers:  purgers,
		metrics:  m,
		logger:   logger,
		config:   config,
		stopCh:   make(chan struct{}),
	}
}

// Start runs both cleanup loops until ctx is cancelled or Stop is called
func (cm *CleanupManager) Start(ctx context.Context) {
	dbTicker := time.NewTicker(cm.config.Interval)
	defer dbTicker.Stop()
	sweepTicker := time.NewTicker(cm.config.SweepInterval)
	defer sweepTicker.Stop()

	// Run immediately on startup
	cm.RunDatabaseCleanup(ctx)
	cm.RunSweep()

	for {
		select {
		case <-dbTicker.C:
			cm.RunDatabaseCleanup(ctx)
		case <-sweepTicker.C:
			cm.RunSweep()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunDatabaseCleanup removes expired login attempts and reset tokens
func (cm *CleanupManager) RunDatabaseCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if cm.attempts != nil {
		n, err := cm.attempts.DeleteExpiredAttempts(cleanupCtx)
		if err != nil {
			cm.logger.Error("failed to cleanup expired login attempts", slog.Any("error", err))
		} else if n > 0 {
			cm.logger.Info("expired login attempts removed", slog.Int64("rows_deleted", n))
		}
	}

	if cm.resets != nil {
		n, err := cm.resets.ClearExpiredResets(cleanupCtx)
		if err != nil {
			cm.logger.Error("failed to clear expired reset tokens", slog.Any("error", err))
		} else if n > 0 {
			cm.logger.Info("expired reset tokens cleared", slog.Int64("rows_updated", n))
		}
	}
}

// RunSweep evicts idle client sessions and purges in-memory stores
func (cm *CleanupManager) RunSweep() {
	if cm.sessions != nil {
		if n := cm.sessions.Sweep(cm.config.SessionIdle); n > 0 {
			cm.logger.Debug("idle client sessions evicted", slog.Int("count", n))
		}
		cm.metrics.SetActiveSessions(cm.sessions.Len())
	}

	for _, p := range cm.purgers {
		p.Purge()
	}
}

// Stop signals the cleanup manager to stop. It is safe to call twice.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
