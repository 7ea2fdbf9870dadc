package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StaleTokenDeleter removes token rows that can no longer authenticate.
type StaleTokenDeleter interface {
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// TokenCleanupWorker periodically purges expired and old blacklisted tokens.
type TokenCleanupWorker struct {
	store     StaleTokenDeleter
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewTokenCleanupWorker builds the worker. A non-positive interval disables it.
func NewTokenCleanupWorker(store StaleTokenDeleter, interval, retention time.Duration, logger *zap.Logger) *TokenCleanupWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCleanupWorker{
		store:     store,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *TokenCleanupWorker) Run(ctx context.Context) {
	if w == nil || w.store == nil || w.interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("token cleanup worker started", zap.Duration("interval", w.interval), zap.Duration("retention", w.retention))
	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("token cleanup worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep deletes rows stale for longer than the retention window.
func (w *TokenCleanupWorker) Sweep(ctx context.Context) int64 {
	cutoff := w.now().Add(-w.retention)
	deleted, err := w.store.DeleteStale(ctx, cutoff)
	if err != nil {
		w.logger.Error("token cleanup failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		w.logger.Info("stale tokens deleted", zap.Int64("count", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted
}
