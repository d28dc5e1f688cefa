package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord is a persisted category churn alert, kept as an audit trail of what a
// run flagged. Profiles themselves are never persisted.
type AlertRecord struct {
	ID                   int64
	RunAt                time.Time
	CustomerID           string
	Category             string
	SignalType           string
	Severity             string
	BaselineQty          float64
	CurrentQty           float64
	DropPct              float64
	WeeksSinceLastOrder  int
	EstimatedLostRevenue decimal.Decimal
	CompetitorLikely     bool
	RecommendedDiscount  float64
	CreatedAt            time.Time
}

// SignalRecord is a persisted competitor-inference signal.
type SignalRecord struct {
	ID                 int64
	RunAt              time.Time
	CustomerID         string
	Category           string
	SignalType         string
	Strength           float64
	CompetitorType     string
	PriceAdvantagePct  float64
	WinBackProbability float64
	CreatedAt          time.Time
}
