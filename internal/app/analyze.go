package app

import (
	"context"

	"churn-alerts/internal/ingest"
)

// Analyze executes one deterministic churn run and prints the JSON report.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	reference, err := resolveReference(opts.ReferenceDate)
	if err != nil {
		return err
	}

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

	report, err := a.newService(store).AnalyzeChurn(ctx, raw, reference)
	if err != nil {
		return err
	}

	return printJSON(report)
}
