package churn

import (
	"time"

	"github.com/shopspring/decimal"

	"churn-alerts/internal/ingest"
)

// Profile captures one customer's purchasing pattern for one category. Profiles are
// built once per run from the input batch and never mutated afterwards.
type Profile struct {
	CustomerID          string          `json:"customer_id"`
	Category            string          `json:"category"`
	OrderHistory        []ingest.Order  `json:"order_history"`
	BaselineWeeklyQty   float64         `json:"baseline_weekly_qty"`
	BaselineWeeklyValue decimal.Decimal `json:"baseline_weekly_value"`
	CurrentWeeklyQty    float64         `json:"current_weekly_qty"`
	CurrentWeeklyValue  decimal.Decimal `json:"current_weekly_value"`
	LastOrderDate       *string         `json:"last_order_date"`
	Trend               Trend           `json:"trend"`
	Volatility          float64         `json:"volatility"`
	IrregularOrdering   bool            `json:"irregular_ordering"`

	lastOrderAt time.Time
}

// historyKeep caps the stored order history per profile.
const historyKeep = 20

// NewProfile assembles a profile from sorted orders and their aggregated statistics.
// orders must be most-recent-first; only the newest historyKeep entries are retained.
func NewProfile(customerID, category string, orders []ingest.Order, stats Stats, trend Trend) Profile {
	history := orders
	if len(history) > historyKeep {
		history = history[:historyKeep]
	}

	var lastDate *string
	if stats.LastOrderDate != "" {
		d := stats.LastOrderDate
		lastDate = &d
	}

	return Profile{
		CustomerID:          customerID,
		Category:            category,
		OrderHistory:        history,
		BaselineWeeklyQty:   stats.BaselineQtyRate,
		BaselineWeeklyValue: stats.BaselineValueRate,
		CurrentWeeklyQty:    stats.CurrentQtyRate,
		CurrentWeeklyValue:  stats.CurrentValueRate,
		LastOrderDate:       lastDate,
		Trend:               trend,
		Volatility:          stats.Volatility,
		lastOrderAt:         stats.LastOrderAt,
	}
}

// Irregular reports whether ordering volatility exceeds the configured limit.
func (p Profile) Irregular(th Thresholds) bool {
	return p.Volatility > th.VolatilityLimit
}
