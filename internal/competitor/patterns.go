package competitor

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"churn-alerts/internal/ingest"
)

// Signal pattern classes, in detection priority order. The first detected class
// becomes the primary type of the resulting competitor signal.
const (
	SignalVolumeSplit   = "volume_split"
	SignalCompleteLoss  = "complete_loss"
	SignalFrequencyDrop = "frequency_drop"
	SignalPromoOnly     = "promo_only"
)

// PatternSignal is one detected ordering pattern with its evidence text.
type PatternSignal struct {
	Type        string
	Description string
	Strength    float64
}

// Patterns summarises the early-vs-recent split of one category's history.
type Patterns struct {
	EarlyQty        float64
	RecentQty       float64
	EarlyValue      decimal.Decimal
	RecentValue     decimal.Decimal
	VolumeChangePct float64
	Signals         []PatternSignal
}

// DetectPatterns splits the date-sorted history at its midpoint and checks each
// pattern class independently. The classes are not mutually exclusive; all detected
// signals are returned in declaration order.
func DetectPatterns(orders []ingest.Order) Patterns {
	p := Patterns{EarlyValue: decimal.Zero, RecentValue: decimal.Zero}
	if len(orders) == 0 {
		return p
	}

	sorted := sortOldestFirst(orders)
	mid := len(sorted) / 2
	early := sorted
	var recent []ingest.Order
	if mid > 0 {
		early = sorted[:mid]
		recent = sorted[mid:]
	}

	p.EarlyQty, p.EarlyValue = sumOrders(early)
	p.RecentQty, p.RecentValue = sumOrders(recent)
	if p.EarlyQty > 0 {
		p.VolumeChangePct = (p.RecentQty - p.EarlyQty) / p.EarlyQty * 100
	}

	// Partial diversion: volume down 30-70% but the customer still orders.
	if p.EarlyQty > 0 && p.RecentQty > 0 {
		change := (p.RecentQty - p.EarlyQty) / p.EarlyQty
		if change > -0.7 && change < -0.3 {
			p.Signals = append(p.Signals, PatternSignal{
				Type: SignalVolumeSplit,
				Description: fmt.Sprintf(
					"Volume dropped %.0f%% but still ordering - likely split sourcing", math.Abs(change)*100),
				Strength: math.Min(80, math.Abs(change)*100),
			})
		}
	}

	// Complete stop after a consistent history. Three early orders rule out noise
	// from sparse histories.
	if p.EarlyQty > 0 && p.RecentQty == 0 && len(early) >= 3 {
		p.Signals = append(p.Signals, PatternSignal{
			Type:        SignalCompleteLoss,
			Description: "Complete stop after consistent ordering history",
			Strength:    95,
		})
	}

	// Frequency drop: recent order count, normalised to the same period length, fell
	// under half the early count.
	if len(early) >= 2 && len(recent) >= 1 {
		if float64(len(recent)*2) < float64(len(early))*0.5 {
			p.Signals = append(p.Signals, PatternSignal{
				Type:        SignalFrequencyDrop,
				Description: "Order frequency dropped significantly",
				Strength:    70,
			})
		}
	}

	// Promo-only ordering: the average unit price dropped more than 10%.
	earlyAvg := avgUnitPrice(p.EarlyValue, p.EarlyQty)
	recentAvg := avgUnitPrice(p.RecentValue, p.RecentQty)
	if earlyAvg > 0 && recentAvg > 0 && (recentAvg-earlyAvg)/earlyAvg < -0.1 {
		p.Signals = append(p.Signals, PatternSignal{
			Type:        SignalPromoOnly,
			Description: "Now only ordering during promotions or cheaper variants",
			Strength:    60,
		})
	}

	return p
}

func sumOrders(orders []ingest.Order) (float64, decimal.Decimal) {
	qty := 0.0
	value := decimal.Zero
	for _, o := range orders {
		qty += o.Quantity
		value = value.Add(o.Value)
	}
	return qty, value
}

func avgUnitPrice(value decimal.Decimal, qty float64) float64 {
	if qty <= 0 {
		return 0
	}
	return value.InexactFloat64() / qty
}

// sortOldestFirst orders a copy of the history oldest first. Orders without a
// parseable date sort before dated ones, keeping their input order.
func sortOldestFirst(orders []ingest.Order) []ingest.Order {
	sorted := make([]ingest.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.HasDate() != b.HasDate() {
			return !a.HasDate()
		}
		return a.PlacedAt.Before(b.PlacedAt)
	})
	return sorted
}
