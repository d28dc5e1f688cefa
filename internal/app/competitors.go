package app

import (
	"context"
	"time"

	"churn-alerts/internal/ingest"
)

// Competitors executes one competitor-inference run and prints the JSON report.
func (a *App) Competitors(ctx context.Context, opts CompetitorsOptions) error {
	raw, err := ingest.ReadOrdersFile(opts.Path)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	report, err := a.newService(store).AnalyzeCompetitors(ctx, raw, time.Now().UTC())
	if err != nil {
		return err
	}

	return printJSON(report)
}
