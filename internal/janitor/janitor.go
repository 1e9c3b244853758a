// Package janitor periodically removes clusters that were soft-deleted
// longer ago than the retention window.
package janitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds janitor configuration
type Config struct {
	CheckInterval time.Duration
	Retention     time.Duration
}

// DefaultConfig returns default janitor configuration
func DefaultConfig() *Config {
	return &Config{
		CheckInterval: time.Hour,
		Retention:     30 * 24 * time.Hour,
	}
}

// ClusterPurger permanently removes soft-deleted clusters
type ClusterPurger interface {
	PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error)
}

// Janitor performs periodic cleanup tasks
type Janitor struct {
	config *Config
	purger ClusterPurger
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewJanitor creates a new janitor instance
func NewJanitor(config *Config, purger ClusterPurger, logger *zap.Logger) *Janitor {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Janitor{
		config: config,
		purger: purger,
		logger: logger.Named("janitor"),
		now:    time.Now,
	}
}

// Start runs cleanup immediately and then on every tick. It blocks until
// ctx is done or Stop is called, and returns the context error.
func (j *Janitor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	j.mu.Lock()
	j.cancel = cancel
	j.mu.Unlock()
	defer cancel()

	j.logger.Info("janitor starting",
		zap.Duration("check_interval", j.config.CheckInterval),
		zap.Duration("retention", j.config.Retention),
	)

	j.run(ctx)

	ticker := time.NewTicker(j.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor shutting down")
			return ctx.Err()

		case <-ticker.C:
			j.run(ctx)
		}
	}
}

// Stop stops the janitor gracefully
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancel != nil {
		j.cancel()
	}
}

// RunOnce purges clusters soft-deleted before the retention cutoff
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.config.Retention)
	return j.purger.PurgeDeleted(ctx, cutoff)
}

func (j *Janitor) run(ctx context.Context) {
	purged, err := j.RunOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Error("purge deleted clusters", zap.Error(err))
		}
		return
	}

	if purged > 0 {
		j.logger.Info("purged deleted clusters", zap.Int64("count", purged))
	}
}
