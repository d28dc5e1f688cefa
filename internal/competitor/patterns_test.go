package competitor

import (
	"testing"

	"github.com/shopspring/decimal"

	"churn-alerts/internal/ingest"
)

func order(date string, qty, value float64) ingest.Order {
	o := ingest.Order{Date: date, Quantity: qty, Value: decimal.NewFromFloat(value)}
	if t, err := ingest.ParseDate(date); err == nil {
		o.PlacedAt = t
	}
	return o
}

func TestDetectPatternsVolumeSplit(t *testing.T) {
	orders := []ingest.Order{
		order("2026-01-01", 40, 400),
		order("2026-01-08", 30, 300),
		order("2026-01-15", 30, 300),
		order("2026-02-01", 20, 200),
		order("2026-02-08", 15, 150),
		order("2026-02-15", 15, 150),
	}

	p := DetectPatterns(orders)

	if p.EarlyQty != 100 || p.RecentQty != 50 {
		t.Fatalf("early/recent qty = %v/%v, want 100/50", p.EarlyQty, p.RecentQty)
	}
	if p.VolumeChangePct != -50 {
		t.Fatalf("volume change = %v, want -50", p.VolumeChangePct)
	}
	if len(p.Signals) != 1 || p.Signals[0].Type != SignalVolumeSplit {
		t.Fatalf("signals = %+v, want single volume_split", p.Signals)
	}
	if p.Signals[0].Strength != 50 {
		t.Fatalf("strength = %v, want 50", p.Signals[0].Strength)
	}
}

func TestDetectPatternsCompleteLoss(t *testing.T) {
	orders := []ingest.Order{
		order("2026-01-01", 50, 500),
		order("2026-01-08", 50, 500),
		order("2026-01-15", 50, 500),
		order("2026-02-01", 0, 0),
		order("2026-02-08", 0, 0),
		order("2026-02-15", 0, 0),
	}

	p := DetectPatterns(orders)

	if len(p.Signals) != 1 || p.Signals[0].Type != SignalCompleteLoss {
		t.Fatalf("signals = %+v, want single complete_loss", p.Signals)
	}
	if p.Signals[0].Strength != 95 {
		t.Fatalf("strength = %v, want 95", p.Signals[0].Strength)
	}
}

func TestDetectPatternsPromoOnly(t *testing.T) {
	// Quantity holds steady while the average unit price drops 20%.
	orders := []ingest.Order{
		order("2026-01-01", 10, 100),
		order("2026-01-08", 10, 100),
		order("2026-01-15", 10, 100),
		order("2026-02-01", 10, 80),
		order("2026-02-08", 10, 80),
		order("2026-02-15", 10, 80),
	}

	p := DetectPatterns(orders)

	if len(p.Signals) != 1 || p.Signals[0].Type != SignalPromoOnly {
		t.Fatalf("signals = %+v, want single promo_only", p.Signals)
	}
	if p.Signals[0].Strength != 60 {
		t.Fatalf("strength = %v, want 60", p.Signals[0].Strength)
	}
}

func TestDetectPatternsMultipleSignals(t *testing.T) {
	// Volume halves and the unit price drops: two independent signals, with the
	// earlier-declared class first.
	orders := []ingest.Order{
		order("2026-01-01", 20, 200),
		order("2026-01-08", 20, 200),
		order("2026-01-15", 20, 200),
		order("2026-02-01", 10, 80),
		order("2026-02-08", 10, 80),
		order("2026-02-15", 10, 80),
	}

	p := DetectPatterns(orders)

	if len(p.Signals) != 2 {
		t.Fatalf("signals = %+v, want volume_split and promo_only", p.Signals)
	}
	if p.Signals[0].Type != SignalVolumeSplit || p.Signals[1].Type != SignalPromoOnly {
		t.Fatalf("signal order = %s, %s; want volume_split first", p.Signals[0].Type, p.Signals[1].Type)
	}
}

func TestDetectPatternsSparseHistory(t *testing.T) {
	if p := DetectPatterns(nil); len(p.Signals) != 0 {
		t.Fatalf("empty history should yield no signals, got %+v", p.Signals)
	}
	if p := DetectPatterns([]ingest.Order{order("2026-01-01", 10, 100)}); len(p.Signals) != 0 {
		t.Fatalf("single order should yield no signals, got %+v", p.Signals)
	}
}
