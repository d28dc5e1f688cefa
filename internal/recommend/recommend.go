// Package recommend turns ranked alerts and competitor signals into prioritized,
// human-readable retention actions with discount and expected-ROI figures.
package recommend

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"churn-alerts/internal/churn"
	"churn-alerts/internal/competitor"
)

// Default caps on emitted actions and strategies.
const (
	DefaultMaxActions    = 10
	DefaultMaxStrategies = 15
)

// Action is one prioritized retention step derived from a churn alert.
type Action struct {
	Priority      int             `json:"priority"`
	CustomerID    string          `json:"customer_id"`
	Category      string          `json:"category"`
	Action        string          `json:"action"`
	Discount      float64         `json:"discount"`
	PotentialSave decimal.Decimal `json:"potential_save"`
}

// Strategy is one competitor-countering retention plan derived from a signal.
type Strategy struct {
	CustomerID          string  `json:"customer_id"`
	Category            string  `json:"category"`
	CompetitorType      string  `json:"competitor_type"`
	WinBackProbability  float64 `json:"win_back_probability"`
	RecommendedDiscount float64 `json:"recommended_discount"`
	Strategy            string  `json:"strategy"`
	ExpectedROI         float64 `json:"expected_roi"`
}

// RankAlerts emits the top retention actions from alerts already sorted by severity
// and estimated loss. limit <= 0 selects the default cap.
func RankAlerts(alerts []churn.Alert, limit int) []Action {
	if limit <= 0 {
		limit = DefaultMaxActions
	}
	if len(alerts) > limit {
		alerts = alerts[:limit]
	}

	actions := make([]Action, 0, len(alerts))
	for i, a := range alerts {
		actions = append(actions, Action{
			Priority:      i + 1,
			CustomerID:    a.CustomerID,
			Category:      a.Category,
			Action:        a.RecommendedAction,
			Discount:      a.RecommendedDiscount,
			PotentialSave: a.EstimatedLostRevenue,
		})
	}
	return actions
}

// BuildStrategies emits retention strategies for the strongest competitor signals,
// blending each signal with the sensitivity profile sharing its (customer, category)
// identity. limit <= 0 selects the default cap.
func BuildStrategies(result competitor.Result, limit int) []Strategy {
	if limit <= 0 {
		limit = DefaultMaxStrategies
	}
	signals := result.Signals
	if len(signals) > limit {
		signals = signals[:limit]
	}

	strategies := make([]Strategy, 0, len(signals))
	for _, sig := range signals {
		sensitivity, hasSensitivity := result.SensitivityFor(sig.CustomerID, sig.Category)

		discount := sig.EstimatedCompetitorPriceAdvantage
		if hasSensitivity {
			discount = math.Min(sensitivity.OptimalDiscountRange[1], sig.EstimatedCompetitorPriceAdvantage+2)
		}

		var sensPtr *competitor.SensitivityProfile
		if hasSensitivity {
			sensPtr = &sensitivity
		}

		strategies = append(strategies, Strategy{
			CustomerID:          sig.CustomerID,
			Category:            sig.Category,
			CompetitorType:      sig.LikelyCompetitorType,
			WinBackProbability:  sig.WinBackProbability,
			RecommendedDiscount: roundTo(discount, 1),
			Strategy:            strategyText(sig, sensPtr),
			ExpectedROI:         roundTo(sig.WinBackProbability*100-discount, 1),
		})
	}
	return strategies
}

// strategyText branches on the inferred competitor archetype, falling back to a
// sensitivity-driven generic template.
func strategyText(sig competitor.Signal, sensitivity *competitor.SensitivityProfile) string {
	switch sig.LikelyCompetitorType {
	case "cash_and_carry":
		base := fmt.Sprintf("Customer likely buying %s from cash & carry (Booker, Costco, etc). ", sig.Category)
		if sig.WinBackProbability > 0.6 {
			return base + "Offer bulk pricing match + free delivery to win back."
		}
		return base + "Consider bundle deal with items they still buy from you."
	case "wholesaler":
		base := fmt.Sprintf("Customer likely switched %s to competing wholesaler. ", sig.Category)
		if sig.WinBackProbability > 0.6 {
			return base + "Match pricing and emphasize service/reliability advantage."
		}
		return base + "Focus on quality differentiation and relationship."
	case "direct_manufacturer":
		return fmt.Sprintf(
			"Customer may be buying %s direct from manufacturer. Compete on convenience - offer consolidated ordering and single invoice.",
			sig.Category)
	default:
		if sensitivity != nil && sensitivity.SensitivityScore > 60 {
			return fmt.Sprintf("Price-sensitive customer - lead with aggressive %s discount.", sig.Category)
		}
		return fmt.Sprintf("Focus on service quality and relationship for %s retention.", sig.Category)
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
