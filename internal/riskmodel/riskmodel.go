// Package riskmodel integrates an external churn-probability model. The model's
// internals are not part of this system; it is a swappable collaborator that turns a
// feature table into probability scores.
package riskmodel

import (
	"context"
	"time"

	"churn-alerts/internal/churn"
	"churn-alerts/internal/ingest"
)

// FeatureRow is one entity's feature vector submitted for scoring.
type FeatureRow struct {
	CustomerID string             `json:"customer_id"`
	Category   string             `json:"category"`
	Features   map[string]float64 `json:"features"`
}

// Score is one entity's churn probability as returned by the model.
type Score struct {
	CustomerID  string  `json:"customer_id"`
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
	Model       string  `json:"model"`
}

// Scorer scores a feature table. Implementations own the model choice.
type Scorer interface {
	ScoreFeatures(ctx context.Context, rows []FeatureRow) ([]Score, error)
}

// RowsFromProfiles flattens churn profiles into the feature table handed to a Scorer.
func RowsFromProfiles(profiles []churn.Profile, reference time.Time) []FeatureRow {
	rows := make([]FeatureRow, 0, len(profiles))
	for _, p := range profiles {
		dropPct := 0.0
		if p.BaselineWeeklyQty > 0 {
			dropPct = (p.BaselineWeeklyQty - p.CurrentWeeklyQty) / p.BaselineWeeklyQty * 100
		}
		weeksSince := 0.0
		if p.LastOrderDate != nil {
			if last, err := ingest.ParseDate(*p.LastOrderDate); err == nil {
				weeksSince = churn.WeeksSince(last, reference)
			}
		}
		rows = append(rows, FeatureRow{
			CustomerID: p.CustomerID,
			Category:   p.Category,
			Features: map[string]float64{
				"baseline_weekly_qty":    p.BaselineWeeklyQty,
				"current_weekly_qty":     p.CurrentWeeklyQty,
				"drop_pct":               dropPct,
				"volatility":             p.Volatility,
				"weeks_since_last_order": weeksSince,
			},
		})
	}
	return rows
}
