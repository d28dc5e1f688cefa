package churn

import "time"

// Trend is the classified purchasing trend for a (customer, category) pair.
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendGrowing   Trend = "growing"
	TrendDeclining Trend = "declining"
	TrendStopped   Trend = "stopped"
)

// Thresholds tune the trend classification and alert severities.
type Thresholds struct {
	// StoppedWeeks is the inactivity horizon: no orders for this many weeks
	// classifies the pair as stopped regardless of rate deltas.
	StoppedWeeks int
	// DeclinePct and CriticalDeclinePct are positive drop percentages.
	DeclinePct         float64
	CriticalDeclinePct float64
	// VolatilityLimit flags irregular ordering in profiles (CV above this value).
	VolatilityLimit float64
}

// DefaultThresholds returns the standard classification thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StoppedWeeks:       4,
		DeclinePct:         40,
		CriticalDeclinePct: 70,
		VolatilityLimit:    0.5,
	}
}

// growthPct is the relative increase treated as growth rather than noise.
const growthPct = 20

// WeeksSince returns the fractional number of weeks between last and reference, or
// zero when last is unknown.
func WeeksSince(last, reference time.Time) float64 {
	if last.IsZero() {
		return 0
	}
	return reference.Sub(last).Hours() / (24 * 7)
}

// Classify derives the trend from baseline/current weekly quantity rates and the time
// of the last order. It is a pure function: every run evaluates from scratch, and the
// inactivity rule always dominates the relative-rate rules.
func Classify(baselineQty, currentQty float64, lastOrderAt, reference time.Time, th Thresholds) Trend {
	if !lastOrderAt.IsZero() && WeeksSince(lastOrderAt, reference) >= float64(th.StoppedWeeks) {
		return TrendStopped
	}

	if baselineQty == 0 {
		if currentQty == 0 {
			return TrendStable
		}
		return TrendGrowing
	}

	changePct := (currentQty - baselineQty) / baselineQty * 100
	switch {
	case changePct <= -th.CriticalDeclinePct:
		return TrendStopped
	case changePct <= -th.DeclinePct:
		return TrendDeclining
	case changePct >= growthPct:
		return TrendGrowing
	default:
		return TrendStable
	}
}
