package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// LiveDisclosureRefresher rebuilds every company's live disclosure.
type LiveDisclosureRefresher interface {
	RefreshAllLive(ctx context.Context) (int, error)
}

// DisclosureRefresher keeps live disclosure rows current on a cron schedule.
type DisclosureRefresher struct {
	logger    *slog.Logger
	snapshots LiveDisclosureRefresher

	// Cron expression, e.g. "@every 1m".
	schedule string

	// Upper bound for one refresh pass.
	runTimeout time.Duration
}

func NewDisclosureRefresher(
	logger *slog.Logger,
	snapshots LiveDisclosureRefresher,
	schedule string,
	runTimeout time.Duration,
) *DisclosureRefresher {
	return &DisclosureRefresher{
		logger:     logger,
		snapshots:  snapshots,
		schedule:   schedule,
		runTimeout: runTimeout,
	}
}

// Start refreshes once immediately, then on every tick of the schedule until ctx is cancelled.
func (r *DisclosureRefresher) Start(ctx context.Context) error {
	r.logger.Info("Starting disclosure refresher worker",
		"schedule", r.schedule,
		"run_timeout", r.runTimeout.String())

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid refresher schedule %q: %w", r.schedule, err)
	}

	r.RunOnce(ctx)

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()

	r.logger.Info("Disclosure refresher worker stopped")
	return nil
}

// RunOnce performs a single refresh pass and logs its outcome.
func (r *DisclosureRefresher) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	runCtx := ctx
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	started := time.Now()
	refreshed, err := r.snapshots.RefreshAllLive(runCtx)
	if err != nil {
		r.logger.Error("Live disclosure refresh finished with errors",
			"refreshed", refreshed,
			"duration", time.Since(started).String(),
			"error", err)
		return
	}

	r.logger.Debug("Live disclosures refreshed",
		"refreshed", refreshed,
		"duration", time.Since(started).String())
}
