package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"churn-alerts/internal/storage"
)

// Export renders persisted alerts as CSV and/or a PNG loss-by-category chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.AddDate(0, -3, 0)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	alerts, err := store.ListAlertsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		a.Logger.Info().Msg("no alerts found for export window")
		return nil
	}
	if len(alerts) > opts.MaxRows {
		alerts = alerts[len(alerts)-opts.MaxRows:]
	}

	a.Logger.Info().Int("exported", len(alerts)).Msg("exporting alerts")

	if opts.CSVPath != "" {
		if err := writeAlertsCSV(opts.CSVPath, alerts); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeAlertsPNG(opts.PNGPath, alerts); err != nil {
			return err
		}
	}

	return nil
}

func writeAlertsCSV(path string, alerts []storage.AlertRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"run_at", "customer_id", "category", "signal_type", "severity",
		"baseline_qty", "current_qty", "drop_pct", "weeks_since_last_order",
		"estimated_lost_revenue", "competitor_likely", "recommended_discount",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, alert := range alerts {
		record := []string{
			alert.RunAt.Format(time.RFC3339),
			alert.CustomerID,
			alert.Category,
			alert.SignalType,
			alert.Severity,
			strconv.FormatFloat(alert.BaselineQty, 'f', -1, 64),
			strconv.FormatFloat(alert.CurrentQty, 'f', -1, 64),
			strconv.FormatFloat(alert.DropPct, 'f', -1, 64),
			strconv.Itoa(alert.WeeksSinceLastOrder),
			alert.EstimatedLostRevenue.String(),
			strconv.FormatBool(alert.CompetitorLikely),
			strconv.FormatFloat(alert.RecommendedDiscount, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// maxChartBars caps the loss-by-category bar chart width.
const maxChartBars = 10

func writeAlertsPNG(path string, alerts []storage.AlertRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	losses := make(map[string]decimal.Decimal)
	var categories []string
	for _, alert := range alerts {
		if _, seen := losses[alert.Category]; !seen {
			categories = append(categories, alert.Category)
		}
		losses[alert.Category] = losses[alert.Category].Add(alert.EstimatedLostRevenue)
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return losses[categories[i]].GreaterThan(losses[categories[j]])
	})
	if len(categories) > maxChartBars {
		categories = categories[:maxChartBars]
	}

	bars := make([]chart.Value, 0, len(categories))
	for _, cat := range categories {
		bars = append(bars, chart.Value{
			Label: cat,
			Value: losses[cat].InexactFloat64(),
		})
	}

	graph := chart.BarChart{
		Title:    "Estimated monthly loss by category",
		Width:    1280,
		Height:   720,
		BarWidth: 80,
		Bars:     bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
