package churn

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Severity ranks the urgency of a category alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityWatch    Severity = "watch"
)

// SeverityRank orders severities for sorting: critical outranks warning outranks watch.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Alert flags a customer-category pair whose trend is declining or stopped.
type Alert struct {
	CustomerID           string          `json:"customer_id"`
	Category             string          `json:"category"`
	SignalType           Trend           `json:"signal_type"`
	Severity             Severity        `json:"severity"`
	BaselineQuantity     float64         `json:"baseline_quantity"`
	CurrentQuantity      float64         `json:"current_quantity"`
	DropPercentage       float64         `json:"drop_percentage"`
	WeeksSinceLastOrder  int             `json:"weeks_since_last_order"`
	EstimatedLostRevenue decimal.Decimal `json:"estimated_lost_revenue"`
	CompetitorLikely     bool            `json:"competitor_likely"`
	RecommendedDiscount  float64         `json:"recommended_discount"`
	RecommendedAction    string          `json:"recommended_action"`
}

// weeksPerMonth converts a weekly value rate shortfall into a monthly loss estimate.
const weeksPerMonth = 4

// sharpDropRatio separates a sharp drop (likely competitor substitution) from an
// organic decline: current under 30% of baseline counts as sharp.
const sharpDropRatio = 0.3

// BuildAlert derives the alert for an unhealthy profile. Callers must only invoke it
// for declining or stopped trends.
func BuildAlert(p Profile, reference time.Time, th Thresholds) Alert {
	dropPct := 0.0
	if p.BaselineWeeklyQty > 0 {
		dropPct = (p.BaselineWeeklyQty - p.CurrentWeeklyQty) / p.BaselineWeeklyQty * 100
	}

	weeksSince := 0
	if !p.lastOrderAt.IsZero() {
		weeksSince = int(WeeksSince(p.lastOrderAt, reference))
	}

	var severity Severity
	switch {
	case p.Trend == TrendStopped || dropPct >= th.CriticalDeclinePct:
		severity = SeverityCritical
	case dropPct >= th.DeclinePct:
		severity = SeverityWarning
	default:
		severity = SeverityWatch
	}

	loss := p.BaselineWeeklyValue.
		Sub(p.CurrentWeeklyValue).
		Mul(decimal.NewFromInt(weeksPerMonth))

	alert := Alert{
		CustomerID:           p.CustomerID,
		Category:             p.Category,
		SignalType:           p.Trend,
		Severity:             severity,
		BaselineQuantity:     roundTo(p.BaselineWeeklyQty, 2),
		CurrentQuantity:      roundTo(p.CurrentWeeklyQty, 2),
		DropPercentage:       roundTo(dropPct, 1),
		WeeksSinceLastOrder:  weeksSince,
		EstimatedLostRevenue: loss.Round(2),
		CompetitorLikely:     competitorLikely(p),
	}
	alert.RecommendedDiscount, alert.RecommendedAction = recommendation(severity, dropPct, p.Category)
	return alert
}

// competitorLikely flags a sharp, not gradual, drop in an unhealthy pair as probable
// external substitution.
func competitorLikely(p Profile) bool {
	if p.Trend != TrendStopped && p.Trend != TrendDeclining {
		return false
	}
	return p.BaselineWeeklyQty > 0 && p.CurrentWeeklyQty < p.BaselineWeeklyQty*sharpDropRatio
}

// recommendation maps severity and drop size onto a discount figure and action text.
func recommendation(severity Severity, dropPct float64, category string) (float64, string) {
	switch severity {
	case SeverityCritical:
		discount := math.Min(25, 10+dropPct/10)
		return discount, fmt.Sprintf(
			"URGENT: Call customer immediately. Offer %.0f%% discount on %s for next 4 weeks to win back business.",
			discount, category)
	case SeverityWarning:
		discount := math.Min(15, 5+dropPct/20)
		return discount, fmt.Sprintf(
			"Schedule call within 48hrs. Offer %.0f%% loyalty discount on %s or bundle deal with their regular items.",
			discount, category)
	default:
		return 5, fmt.Sprintf(
			"Monitor closely. Consider including %s samples in next delivery or promotional pricing.",
			category)
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
