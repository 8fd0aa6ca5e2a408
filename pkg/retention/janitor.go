// Package retention deletes conversations that have been idle too long.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Store is the slice of the transcript store the janitor needs.
type Store interface {
	// DeleteIdleConversations removes conversations whose last activity is
	// before the cutoff and returns how many were removed.
	DeleteIdleConversations(ctx context.Context, before time.Time) (int64, error)
}

// Janitor periodically deletes conversations idle longer than MaxIdle.
type Janitor struct {
	store    Store
	maxIdle  time.Duration
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// New creates a janitor. schedule is a standard five-field cron expression.
func New(store Store, maxIdle time.Duration, schedule string) (*Janitor, error) {
	if maxIdle <= 0 {
		return nil, fmt.Errorf("max idle must be positive, got %s", maxIdle)
	}

	j := &Janitor{
		store:    store,
		maxIdle:  maxIdle,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "retention"),
	}

	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	return j, nil
}

// Start begins scheduled sweeps.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("retention janitor started",
		"schedule", j.schedule,
		"max_idle", j.maxIdle.String(),
	)
}

// Stop halts scheduling and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info("retention janitor stopped")
}

// Sweep runs one deletion pass immediately.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-j.maxIdle)
	removed, err := j.store.DeleteIdleConversations(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention sweep failed: %w", err)
	}
	return removed, nil
}

// sweep is the scheduled entry point.
func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := j.Sweep(ctx)
	if err != nil {
		j.logger.Error("retention sweep failed", "error", err)
		return
	}
	if removed > 0 {
		j.logger.Info("retention sweep completed", "removed", removed)
	} else {
		j.logger.Debug("retention sweep completed, nothing to remove")
	}
}
