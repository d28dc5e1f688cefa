package recommend

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"churn-alerts/internal/churn"
	"churn-alerts/internal/competitor"
)

func TestRankAlerts(t *testing.T) {
	alerts := []churn.Alert{
		{CustomerID: "C1", Category: "chicken", RecommendedAction: "call now", RecommendedDiscount: 18, EstimatedLostRevenue: decimal.NewFromInt(3200)},
		{CustomerID: "C2", Category: "drinks", RecommendedAction: "monitor", RecommendedDiscount: 5, EstimatedLostRevenue: decimal.NewFromInt(400)},
	}

	actions := RankAlerts(alerts, 0)

	if len(actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(actions))
	}
	if actions[0].Priority != 1 || actions[1].Priority != 2 {
		t.Fatalf("priorities should be 1-based positions, got %+v", actions)
	}
	if actions[0].CustomerID != "C1" || actions[0].Discount != 18 {
		t.Fatalf("unexpected first action: %+v", actions[0])
	}
	if !actions[0].PotentialSave.Equal(decimal.NewFromInt(3200)) {
		t.Fatalf("potential save = %s, want 3200", actions[0].PotentialSave)
	}
}

func TestRankAlertsCap(t *testing.T) {
	alerts := make([]churn.Alert, DefaultMaxActions+5)
	if got := RankAlerts(alerts, 0); len(got) != DefaultMaxActions {
		t.Fatalf("default cap = %d, want %d", len(got), DefaultMaxActions)
	}
	if got := RankAlerts(alerts, 3); len(got) != 3 {
		t.Fatalf("explicit cap = %d, want 3", len(got))
	}
}

func TestBuildStrategiesDiscountAndROI(t *testing.T) {
	result := competitor.Result{
		Signals: []competitor.Signal{{
			CustomerID:                        "C1",
			Category:                          "chicken",
			LikelyCompetitorType:              "wholesaler",
			EstimatedCompetitorPriceAdvantage: 10,
			WinBackProbability:                0.7,
		}},
		Sensitivity: []competitor.SensitivityProfile{{
			CustomerID:           "C1",
			Category:             "chicken",
			SensitivityScore:     50,
			OptimalDiscountRange: [2]float64{5, 15},
		}},
	}

	strategies := BuildStrategies(result, 0)

	if len(strategies) != 1 {
		t.Fatalf("strategies = %d, want 1", len(strategies))
	}
	s := strategies[0]
	// min(upper band 15, advantage 10 + 2) = 12.
	if s.RecommendedDiscount != 12 {
		t.Fatalf("discount = %v, want 12", s.RecommendedDiscount)
	}
	// 0.7 * 100 - 12 = 58.
	if s.ExpectedROI != 58 {
		t.Fatalf("expected ROI = %v, want 58", s.ExpectedROI)
	}
	if !strings.Contains(s.Strategy, "wholesaler") {
		t.Fatalf("strategy text should mention the wholesaler archetype, got %q", s.Strategy)
	}
	if !strings.Contains(s.Strategy, "Match pricing") {
		t.Fatalf("high win-back wholesaler text should push a pricing match, got %q", s.Strategy)
	}
}

func TestBuildStrategiesBandCap(t *testing.T) {
	result := competitor.Result{
		Signals: []competitor.Signal{{
			CustomerID:                        "C1",
			Category:                          "drinks",
			LikelyCompetitorType:              "cash_and_carry",
			EstimatedCompetitorPriceAdvantage: 15,
			WinBackProbability:                0.4,
		}},
		Sensitivity: []competitor.SensitivityProfile{{
			CustomerID:           "C1",
			Category:             "drinks",
			OptimalDiscountRange: [2]float64{0, 10},
		}},
	}

	strategies := BuildStrategies(result, 0)

	// advantage 15 + 2 exceeds the band upper bound of 10.
	if strategies[0].RecommendedDiscount != 10 {
		t.Fatalf("discount should cap at the band, got %v", strategies[0].RecommendedDiscount)
	}
	if !strings.Contains(strategies[0].Strategy, "bundle deal") {
		t.Fatalf("low win-back cash & carry text should suggest a bundle, got %q", strategies[0].Strategy)
	}
}

func TestBuildStrategiesWithoutSensitivity(t *testing.T) {
	result := competitor.Result{
		Signals: []competitor.Signal{{
			CustomerID:                        "C1",
			Category:                          "packaging",
			LikelyCompetitorType:              "direct_manufacturer",
			EstimatedCompetitorPriceAdvantage: 20,
			WinBackProbability:                0.5,
		}},
	}

	strategies := BuildStrategies(result, 0)

	// Without a sensitivity profile the discount is the raw advantage.
	if strategies[0].RecommendedDiscount != 20 {
		t.Fatalf("discount = %v, want 20", strategies[0].RecommendedDiscount)
	}
	if !strings.Contains(strategies[0].Strategy, "direct from manufacturer") {
		t.Fatalf("unexpected strategy text: %q", strategies[0].Strategy)
	}
}

func TestBuildStrategiesUnknownArchetype(t *testing.T) {
	sensitive := competitor.Result{
		Signals: []competitor.Signal{{
			CustomerID:           "C1",
			Category:             "chicken",
			LikelyCompetitorType: "unknown",
			WinBackProbability:   0.5,
		}},
		Sensitivity: []competitor.SensitivityProfile{{
			CustomerID:           "C1",
			Category:             "chicken",
			SensitivityScore:     80,
			OptimalDiscountRange: [2]float64{10, 20},
		}},
	}

	strategies := BuildStrategies(sensitive, 0)
	if !strings.Contains(strategies[0].Strategy, "Price-sensitive") {
		t.Fatalf("high sensitivity should drive a discount-led strategy, got %q", strategies[0].Strategy)
	}

	insensitive := sensitive
	insensitive.Sensitivity = []competitor.SensitivityProfile{{
		CustomerID: "C1",
		Category:   "chicken",
	}}
	strategies = BuildStrategies(insensitive, 0)
	if !strings.Contains(strategies[0].Strategy, "service quality") {
		t.Fatalf("low sensitivity should drive a relationship strategy, got %q", strategies[0].Strategy)
	}
}

func TestBuildStrategiesCap(t *testing.T) {
	var result competitor.Result
	for i := 0; i < DefaultMaxStrategies+5; i++ {
		result.Signals = append(result.Signals, competitor.Signal{CustomerID: "C", Category: "chicken"})
	}
	if got := BuildStrategies(result, 0); len(got) != DefaultMaxStrategies {
		t.Fatalf("default cap = %d, want %d", len(got), DefaultMaxStrategies)
	}
}
