package competitor

import (
	"math"

	"churn-alerts/internal/ingest"
)

// Qualitative response labels on a sensitivity profile.
const (
	ResponseNeutral    = "neutral"
	ResponseHighlySens = "highly_sensitive"
	ResponseModerately = "moderately_sensitive"
	ResponseLow        = "low_sensitivity"
)

// SensitivityProfile scores how strongly a customer's category volume reacts to price.
type SensitivityProfile struct {
	CustomerID              string     `json:"customer_id"`
	Category                string     `json:"category"`
	SensitivityScore        float64    `json:"sensitivity_score"`
	PriceElasticity         float64    `json:"price_elasticity"`
	AcceptablePremium       float64    `json:"acceptable_premium"`
	HistoricalPriceResponse string     `json:"historical_price_response"`
	OptimalDiscountRange    [2]float64 `json:"optimal_discount_range"`
}

// PriceSensitivity derives a sensitivity profile from a category's order history.
// Fewer than two orders short-circuits to a neutral default profile; degenerate price
// series (under two distinct unit prices, or under two deltas) yield elasticity 1.0.
func PriceSensitivity(customerID, category string, orders []ingest.Order) SensitivityProfile {
	if len(orders) < 2 {
		return SensitivityProfile{
			CustomerID:              customerID,
			Category:                category,
			SensitivityScore:        50,
			PriceElasticity:         1.0,
			AcceptablePremium:       10,
			HistoricalPriceResponse: ResponseNeutral,
			OptimalDiscountRange:    [2]float64{5, 15},
		}
	}

	elasticity := priceElasticity(orders)
	score := clamp(elasticity*50, 0, 100)

	profile := SensitivityProfile{
		CustomerID:       customerID,
		Category:         category,
		SensitivityScore: roundTo(score, 1),
		PriceElasticity:  roundTo(elasticity, 2),
	}

	switch {
	case score > 70:
		profile.HistoricalPriceResponse = ResponseHighlySens
		profile.AcceptablePremium = 5
		profile.OptimalDiscountRange = [2]float64{10, 20}
	case score > 40:
		profile.HistoricalPriceResponse = ResponseModerately
		profile.AcceptablePremium = 10
		profile.OptimalDiscountRange = [2]float64{5, 15}
	default:
		profile.HistoricalPriceResponse = ResponseLow
		profile.AcceptablePremium = 20
		profile.OptimalDiscountRange = [2]float64{0, 10}
	}

	return profile
}

// priceElasticity correlates period-over-period unit-price deltas with quantity
// deltas over the positive-quantity orders. A negative correlation (price up, volume
// down) scales to elasticity; a positive or absent one is treated as low-information.
func priceElasticity(orders []ingest.Order) float64 {
	var prices, quantities []float64
	for _, o := range orders {
		if o.Quantity > 0 {
			prices = append(prices, o.Value.InexactFloat64()/o.Quantity)
			quantities = append(quantities, o.Quantity)
		}
	}

	if len(prices) < 2 || distinctCount(prices) < 2 {
		return 1.0
	}

	priceDeltas := deltas(prices)
	qtyDeltas := deltas(quantities)
	if len(priceDeltas) < 2 {
		return 1.0
	}

	corr := correlation(priceDeltas, qtyDeltas)
	if corr < 0 {
		return math.Abs(corr) * 2
	}
	return 0.5
}

func deltas(values []float64) []float64 {
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		out = append(out, values[i]-values[i-1])
	}
	return out
}

func distinctCount(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// correlation is the Pearson coefficient. Degenerate inputs (under two samples, zero
// variance on either side) return zero rather than failing.
func correlation(x, y []float64) float64 {
	n := len(x)
	if n < 2 || len(y) < n {
		return 0
	}

	meanX, meanY := mean(x), mean(y[:n])

	num, denX, denY := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}

	den := math.Sqrt(denX) * math.Sqrt(denY)
	if den == 0 {
		return 0
	}
	return num / den
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
