package duckdb

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultRetentionInterval = time.Hour

// Retention periodically deletes local log rows older than a fixed age.
type Retention struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewRetention keeps rows for days. It returns nil when days is 0 (disabled).
func NewRetention(store *Store, days int, interval time.Duration) *Retention {
	if days <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	return &Retention{
		store:    store,
		maxAge:   time.Duration(days) * 24 * time.Hour,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps once to catch up after downtime, then on every interval until ctx is done.
func (r *Retention) Run(ctx context.Context) error {
	r.sweepAndLog(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweepAndLog(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep deletes expired rows and returns how many were removed.
func (r *Retention) Sweep(ctx context.Context) (int64, error) {
	return r.store.DeleteBefore(ctx, r.now().Add(-r.maxAge))
}

func (r *Retention) sweepAndLog(ctx context.Context) {
	n, err := r.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.store.logger.Warn("retention sweep failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		r.store.logger.Info("retention sweep deleted expired logs",
			zap.Int64("rows", n),
			zap.Duration("max_age", r.maxAge))
	}
}

// DeleteBefore removes rows with a timestamp older than cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM logs WHERE TIMESTAMP < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired logs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
