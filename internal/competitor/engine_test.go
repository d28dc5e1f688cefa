package competitor

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"churn-alerts/internal/ingest"
)

func rawOrder(customer, product, date string, qty, value float64) ingest.RawOrder {
	return ingest.RawOrder{
		"customer_id": customer,
		"product":     product,
		"date":        date,
		"quantity":    qty,
		"value":       value,
	}
}

func TestEngineCompleteLossSignal(t *testing.T) {
	reference := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	raw := []ingest.RawOrder{
		rawOrder("C1", "chicken breast", "2026-01-01", 50, 500),
		rawOrder("C1", "chicken breast", "2026-01-08", 50, 500),
		rawOrder("C1", "chicken breast", "2026-01-15", 50, 500),
		rawOrder("C1", "chicken breast", "2026-02-01", 0, 0),
		rawOrder("C1", "chicken breast", "2026-02-08", 0, 0),
		rawOrder("C1", "chicken breast", "2026-02-15", 0, 0),
	}

	engine := NewEngine(nil, nil, zerolog.Nop())
	result := engine.Analyze(raw, reference)

	if len(result.Signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(result.Signals))
	}
	sig := result.Signals[0]
	if sig.CustomerID != "C1" || sig.Category != "chicken" {
		t.Fatalf("unexpected signal target: %s/%s", sig.CustomerID, sig.Category)
	}
	if sig.SignalType != SignalCompleteLoss {
		t.Fatalf("signal type = %q, want complete_loss", sig.SignalType)
	}
	if sig.SignalStrength != 95 {
		t.Fatalf("strength = %v, want 95", sig.SignalStrength)
	}
	if sig.LikelyCompetitorType != "wholesaler" {
		t.Fatalf("competitor type = %q, want wholesaler", sig.LikelyCompetitorType)
	}
	if len(sig.Evidence) != 1 {
		t.Fatalf("evidence = %v, want one entry", sig.Evidence)
	}
	// Signal strength 95, 4 weeks since loss, mid sensitivity, 10% advantage.
	want := roundTo(WinBackProbability(95, 4, 50, 10), 2)
	if sig.WinBackProbability != want {
		t.Fatalf("win-back probability = %v, want %v", sig.WinBackProbability, want)
	}

	s := result.Summary
	if s.TotalCustomersAnalyzed != 1 || s.CustomersWithCompetitorSignals != 1 || s.TotalSignals != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.SignalsByType[SignalCompleteLoss] != 1 || s.SignalsByCompetitor["wholesaler"] != 1 {
		t.Fatalf("unexpected summary breakdowns: %+v", s)
	}
	if len(s.CategoriesMostAtRisk) != 1 || s.CategoriesMostAtRisk[0] != "chicken" {
		t.Fatalf("categories most at risk = %v, want [chicken]", s.CategoriesMostAtRisk)
	}
}

func TestEngineHealthyPairProducesNoSignal(t *testing.T) {
	reference := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	raw := []ingest.RawOrder{
		rawOrder("C1", "cola", "2026-01-01", 10, 100),
		rawOrder("C1", "cola", "2026-01-15", 10, 100),
		rawOrder("C1", "cola", "2026-02-01", 10, 100),
		rawOrder("C1", "cola", "2026-02-15", 10, 100),
	}

	engine := NewEngine(nil, nil, zerolog.Nop())
	result := engine.Analyze(raw, reference)

	if len(result.Signals) != 0 {
		t.Fatalf("steady ordering should yield no signals, got %+v", result.Signals)
	}
	// Sensitivity profiles are computed for every pair regardless.
	if len(result.Sensitivity) != 1 {
		t.Fatalf("sensitivity profiles = %d, want 1", len(result.Sensitivity))
	}
	if _, ok := result.SensitivityFor("C1", "drinks"); !ok {
		t.Fatal("sensitivity profile for C1/drinks should exist")
	}
}

func TestEngineSignalsSortedByStrength(t *testing.T) {
	reference := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	// C-loss stops completely (strength 95); C-split halves volume (strength 50).
	raw := []ingest.RawOrder{
		rawOrder("C-split", "cola", "2026-01-01", 40, 400),
		rawOrder("C-split", "cola", "2026-01-08", 30, 300),
		rawOrder("C-split", "cola", "2026-01-15", 30, 300),
		rawOrder("C-split", "cola", "2026-02-01", 20, 200),
		rawOrder("C-split", "cola", "2026-02-08", 15, 150),
		rawOrder("C-split", "cola", "2026-02-15", 15, 150),
		rawOrder("C-loss", "cheddar", "2026-01-01", 50, 500),
		rawOrder("C-loss", "cheddar", "2026-01-08", 50, 500),
		rawOrder("C-loss", "cheddar", "2026-01-15", 50, 500),
		rawOrder("C-loss", "cheddar", "2026-02-01", 0, 0),
		rawOrder("C-loss", "cheddar", "2026-02-08", 0, 0),
		rawOrder("C-loss", "cheddar", "2026-02-15", 0, 0),
	}

	engine := NewEngine(nil, nil, zerolog.Nop())
	result := engine.Analyze(raw, reference)

	if len(result.Signals) != 2 {
		t.Fatalf("signals = %d, want 2", len(result.Signals))
	}
	if result.Signals[0].CustomerID != "C-loss" || result.Signals[1].CustomerID != "C-split" {
		t.Fatalf("signals should sort by descending strength, got %+v", result.Signals)
	}

	avg := result.Summary.AvgWinBackProbability
	want := math.Round((result.Signals[0].WinBackProbability+result.Signals[1].WinBackProbability)/2*100) / 100
	if math.Abs(avg-want) > 0.011 {
		t.Fatalf("avg win-back = %v, want about %v", avg, want)
	}
}
