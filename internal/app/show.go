package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"churn-alerts/internal/storage"
)

type alertLister interface {
	ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error)
}

type signalLister interface {
	ListRecentSignals(ctx context.Context, limit int) ([]storage.SignalRecord, error)
}

// Show prints recently persisted alerts or competitor signals.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show records")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Signals {
		return a.showSignals(ctx, store, opts.Limit)
	}
	return a.showAlerts(ctx, store, opts.Limit)
}

func (a *App) showAlerts(ctx context.Context, store alertLister, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Run (UTC)\tCustomer\tCategory\tTrend\tSeverity\tDrop%\tLost/Month\tCompetitor?")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%.1f\t%s\t%t\n",
			alert.RunAt.UTC().Format(time.RFC3339),
			sanitizeInline(alert.CustomerID),
			sanitizeInline(alert.Category),
			alert.SignalType,
			alert.Severity,
			alert.DropPct,
			alert.EstimatedLostRevenue.StringFixed(2),
			alert.CompetitorLikely,
		)
	}

	return writer.Flush()
}

func (a *App) showSignals(ctx context.Context, store signalLister, limit int) error {
	signals, err := store.ListRecentSignals(ctx, limit)
	if err != nil {
		return err
	}
	if len(signals) == 0 {
		fmt.Fprintln(os.Stdout, "no signals found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Run (UTC)\tCustomer\tCategory\tSignal\tStrength\tCompetitor\tWin-back")

	for _, sig := range signals {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%.1f\t%s\t%.2f\n",
			sig.RunAt.UTC().Format(time.RFC3339),
			sanitizeInline(sig.CustomerID),
			sanitizeInline(sig.Category),
			sig.SignalType,
			sig.Strength,
			sig.CompetitorType,
			sig.WinBackProbability,
		)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
