package churn

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"churn-alerts/internal/ingest"
)

// Windows describes the baseline and current observation windows, in weeks.
type Windows struct {
	LookbackWeeks int
	BaselineWeeks int
	CurrentWeeks  int
}

// DefaultWindows returns the standard 12/8/4-week configuration.
func DefaultWindows() Windows {
	return Windows{LookbackWeeks: 12, BaselineWeeks: 8, CurrentWeeks: 4}
}

const week = 7 * 24 * time.Hour

// Stats carries the per-category rate statistics derived from one order sequence.
type Stats struct {
	BaselineQtyRate   float64
	BaselineValueRate decimal.Decimal
	CurrentQtyRate    float64
	CurrentValueRate  decimal.Decimal
	LastOrderDate     string
	LastOrderAt       time.Time
	Volatility        float64
}

// Aggregator computes windowed rate statistics for a category's order history.
type Aggregator struct {
	windows Windows
}

// NewAggregator builds an Aggregator over the given windows.
func NewAggregator(w Windows) *Aggregator {
	return &Aggregator{windows: w}
}

// Aggregate derives baseline/current weekly rates, the last valid order date, and
// volatility for a category. orders must already be sorted most-recent-first.
func (a *Aggregator) Aggregate(orders []ingest.Order, reference time.Time) Stats {
	stats := Stats{
		BaselineValueRate: decimal.Zero,
		CurrentValueRate:  decimal.Zero,
	}

	stats.BaselineQtyRate, stats.BaselineValueRate = a.baseline(orders, reference)
	stats.CurrentQtyRate, stats.CurrentValueRate = a.current(orders, reference)
	stats.LastOrderDate, stats.LastOrderAt = lastOrder(orders)
	stats.Volatility = Volatility(orders)
	return stats
}

// baseline averages quantity and value over the historical baseline window. When no
// dated order falls inside the window, the most recent half of the history stands in,
// or the whole history when it holds fewer than five orders.
func (a *Aggregator) baseline(orders []ingest.Order, reference time.Time) (float64, decimal.Decimal) {
	start := reference.Add(-time.Duration(a.windows.LookbackWeeks) * week)
	end := reference.Add(-time.Duration(a.windows.LookbackWeeks-a.windows.BaselineWeeks) * week)

	var window []ingest.Order
	for _, o := range orders {
		if !o.HasDate() {
			continue
		}
		if !o.PlacedAt.Before(start) && !o.PlacedAt.After(end) {
			window = append(window, o)
		}
	}

	if len(window) == 0 {
		if len(orders) > 4 {
			window = orders[:len(orders)/2]
		} else {
			window = orders
		}
	}

	weeks := a.windows.BaselineWeeks
	if weeks < 1 {
		weeks = 1
	}
	qty, value := sumOrders(window)
	return qty / float64(weeks), value.Div(decimal.NewFromInt(int64(weeks)))
}

// current averages quantity and value over the most recent window before reference.
func (a *Aggregator) current(orders []ingest.Order, reference time.Time) (float64, decimal.Decimal) {
	weeks := a.windows.CurrentWeeks
	if weeks < 1 {
		weeks = 1
	}
	start := reference.Add(-time.Duration(weeks) * week)

	var window []ingest.Order
	for _, o := range orders {
		if o.HasDate() && !o.PlacedAt.Before(start) {
			window = append(window, o)
		}
	}

	qty, value := sumOrders(window)
	return qty / float64(weeks), value.Div(decimal.NewFromInt(int64(weeks)))
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

// lastOrder finds the latest parseable order date across the whole history, not just
// the current window.
func lastOrder(orders []ingest.Order) (string, time.Time) {
	var latest time.Time
	var label string
	for _, o := range orders {
		if o.HasDate() && o.PlacedAt.After(latest) {
			latest = o.PlacedAt
			label = o.Date
		}
	}
	return label, latest
}

// Volatility returns the coefficient of variation (population standard deviation over
// mean) of positive order quantities. Fewer than two positive quantities, or a zero
// mean, yields zero.
func Volatility(orders []ingest.Order) float64 {
	var quantities []float64
	for _, o := range orders {
		if o.Quantity > 0 {
			quantities = append(quantities, o.Quantity)
		}
	}
	if len(quantities) < 2 {
		return 0
	}

	mean := 0.0
	for _, q := range quantities {
		mean += q
	}
	mean /= float64(len(quantities))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, q := range quantities {
		d := q - mean
		variance += d * d
	}
	variance /= float64(len(quantities))

	return math.Sqrt(variance) / mean
}

// SortMostRecentFirst orders a copy of the history newest first. Orders without a
// parseable date sort after dated ones, keeping their input order.
func SortMostRecentFirst(orders []ingest.Order) []ingest.Order {
	sorted := make([]ingest.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.HasDate() != b.HasDate() {
			return a.HasDate()
		}
		return a.PlacedAt.After(b.PlacedAt)
	})
	return sorted
}
