package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"churn-alerts/internal/alerting"
	"churn-alerts/internal/churn"
	"churn-alerts/internal/competitor"
	"churn-alerts/internal/config"
	"churn-alerts/internal/ingest"
	"churn-alerts/internal/riskmodel"
	"churn-alerts/internal/service"
	"churn-alerts/internal/storage"
)

func init() {
	// Monetary figures serialise as JSON numbers, matching the report contract.
	decimal.MarshalJSONWithoutQuotes = true
}

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newService(store *storage.Store) *service.Service {
	grouper := ingest.NewGrouper(nil)

	windows := churn.Windows{
		LookbackWeeks: a.Config.Analysis.LookbackWeeks,
		BaselineWeeks: a.Config.Analysis.BaselineWeeks,
		CurrentWeeks:  a.Config.Analysis.CurrentWeeks,
	}
	thresholds := churn.Thresholds{
		StoppedWeeks:       a.Config.Analysis.StoppedWeeks,
		DeclinePct:         a.Config.Analysis.DeclinePct,
		CriticalDeclinePct: a.Config.Analysis.CriticalDeclinePct,
		VolatilityLimit:    a.Config.Analysis.VolatilityThreshold,
	}

	churnEngine := churn.NewEngine(windows, thresholds, grouper, a.Logger)
	competitorEngine := competitor.NewEngine(grouper, nil, a.Logger)

	var alertStore storage.AlertStore
	var signalStore storage.SignalStore
	if store != nil {
		alertStore = store
		signalStore = store
	}

	return service.New(a.Config, churnEngine, competitorEngine,
		alertStore, signalStore, a.newScorer(), a.newNotifier(), a.Logger)
}

func (a *App) newScorer() riskmodel.Scorer {
	if a.Config.RiskModel.Endpoint == "" {
		return nil
	}
	return riskmodel.NewHTTPScorer(riskmodel.Options{
		Endpoint: a.Config.RiskModel.Endpoint,
		Timeout:  a.Config.RiskModel.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// resolveReference parses the optional reference date override, defaulting to now.
func resolveReference(override string) (time.Time, error) {
	if override == "" {
		return time.Now().UTC(), nil
	}
	ref, err := ingest.ParseDate(override)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference date: %w", err)
	}
	return ref, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

// AnalyzeOptions configure a deterministic churn run.
type AnalyzeOptions struct {
	Path          string
	ReferenceDate string
}

// CompetitorsOptions configure a competitor-inference run.
type CompetitorsOptions struct {
	Path string
}

// WatchOptions configure the periodic re-analysis loop.
type WatchOptions struct {
	Path string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit   int
	Signals bool
}

// ExportOptions hold parameters for exporting persisted alerts.
type ExportOptions struct {
	From    *time.Time
	To      *time.Time
	CSVPath string
	PNGPath string
	MaxRows int
}
