// Package notifier composes activity notifiers: fan-out to several sinks and
// asynchronous delivery on a bounded worker pool.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"

	"walletwise/internal/logger"
	"walletwise/internal/metrics"
	"walletwise/internal/services"
)

// Multi delivers each activity to every notifier in order and joins their errors.
type Multi []services.ActivityNotifier

// RecordUserActivity calls every notifier even if an earlier one fails.
func (m Multi) RecordUserActivity(ctx context.Context, ownerID string, activity services.Activity) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.RecordUserActivity(ctx, ownerID, activity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncConfig configures an Async notifier.
type AsyncConfig struct {
	// Name labels failures in logs and metrics.
	Name string
	// PoolSize bounds concurrent deliveries.
	PoolSize int
	// Timeout bounds a single delivery.
	Timeout time.Duration
}

// Async delivers activities on an ants worker pool so a slow sink never
// delays the request that produced the activity.
type Async struct {
	next    services.ActivityNotifier
	pool    *ants.Pool
	metrics *metrics.Metrics
	name    string
	timeout time.Duration
}

// NewAsync wraps next. Submissions fail fast when every worker is busy.
func NewAsync(next services.ActivityNotifier, cfg AsyncConfig, m *metrics.Metrics) (*Async, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "async"
	}

	pool, err := ants.NewPool(cfg.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier pool: %w", err)
	}

	return &Async{
		next:    next,
		pool:    pool,
		metrics: m,
		name:    cfg.Name,
		timeout: cfg.Timeout,
	}, nil
}

// RecordUserActivity queues delivery and returns immediately. The delivery
// outlives the caller's request context but not its values.
func (a *Async) RecordUserActivity(ctx context.Context, ownerID string, activity services.Activity) error {
	detached := context.WithoutCancel(ctx)

	err := a.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(detached, a.timeout)
		defer cancel()

		if err := a.next.RecordUserActivity(ctx, ownerID, activity); err != nil {
			a.metrics.NotifierFailed(a.name)
			logger.Get().Warnw("async activity notification failed",
				"notifier", a.name,
				"owner_id", ownerID,
				"transaction_id", activity.TransactionID,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("%s notifier: %w", a.name, err)
	}
	return nil
}

// Running returns the number of deliveries in progress.
func (a *Async) Running() int {
	return a.pool.Running()
}

// Close waits up to timeout for queued deliveries and releases the pool.
func (a *Async) Close(timeout time.Duration) error {
	logger.Get().Infow("Shutting down notifier pool", "notifier", a.name, "running_workers", a.pool.Running())
	return a.pool.ReleaseTimeout(timeout)
}
