package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"churn-alerts/internal/ingest"
	"churn-alerts/internal/scheduler"
)

// Watch re-runs the churn analysis on an aligned interval until interrupted,
// reloading the orders file on every tick.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Fail fast on an unreadable file before entering the loop.
	if _, err := ingest.ReadOrdersFile(opts.Path); err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watch.Interval,
		AlignToStart: a.Config.Watch.AlignToBucket,
		StartupDelay: a.Config.Watch.StartupDelay,
	}, a.Logger)

	svc := a.newService(store)
	load := func() ([]ingest.RawOrder, error) {
		return ingest.ReadOrdersFile(opts.Path)
	}

	a.Logger.Info().Str("path", opts.Path).Dur("interval", a.Config.Watch.Interval).Msg("starting watch loop")
	err = sched.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		return svc.ProcessTick(ctx, bucket, load)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}
