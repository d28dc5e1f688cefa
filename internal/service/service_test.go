package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"churn-alerts/internal/alerting"
	"churn-alerts/internal/churn"
	"churn-alerts/internal/competitor"
	"churn-alerts/internal/config"
	"churn-alerts/internal/ingest"
	"churn-alerts/internal/riskmodel"
	"churn-alerts/internal/storage"
)

type fakeStore struct {
	alerts  []storage.AlertRecord
	signals []storage.SignalRecord

	lockHeld  bool
	lockCalls int
}

func (f *fakeStore) InsertAlerts(ctx context.Context, records []storage.AlertRecord) error {
	f.alerts = append(f.alerts, records...)
	return nil
}

func (f *fakeStore) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error) {
	return f.alerts, nil
}

func (f *fakeStore) ListAlertsBetween(ctx context.Context, from, to time.Time) ([]storage.AlertRecord, error) {
	return f.alerts, nil
}

func (f *fakeStore) InsertSignals(ctx context.Context, records []storage.SignalRecord) error {
	f.signals = append(f.signals, records...)
	return nil
}

func (f *fakeStore) ListRecentSignals(ctx context.Context, limit int) ([]storage.SignalRecord, error) {
	return f.signals, nil
}

func (f *fakeStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	f.lockCalls++
	if f.lockHeld {
		return nil, false, nil
	}
	return func() {}, true, nil
}

type fakeScorer struct {
	scores []riskmodel.Score
	err    error
	rows   []riskmodel.FeatureRow
}

func (f *fakeScorer) ScoreFeatures(ctx context.Context, rows []riskmodel.FeatureRow) ([]riskmodel.Score, error) {
	f.rows = rows
	return f.scores, f.err
}

type fakeNotifier struct {
	digests []alerting.Digest
}

func (f *fakeNotifier) Notify(ctx context.Context, digest alerting.Digest) error {
	f.digests = append(f.digests, digest)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			LookbackWeeks:       12,
			BaselineWeeks:       8,
			CurrentWeeks:        4,
			StoppedWeeks:        4,
			DeclinePct:          40,
			CriticalDeclinePct:  70,
			VolatilityThreshold: 0.5,
			MaxActions:          10,
			MaxStrategies:       15,
		},
		Alerting: config.AlertingConfig{Enabled: true, Channels: []string{"telegram"}},
		Watch:    config.WatchConfig{AdvisoryLockKey: 42},
	}
}

func testEngines(cfg *config.Config) (*churn.Engine, *competitor.Engine) {
	windows := churn.Windows{
		LookbackWeeks: cfg.Analysis.LookbackWeeks,
		BaselineWeeks: cfg.Analysis.BaselineWeeks,
		CurrentWeeks:  cfg.Analysis.CurrentWeeks,
	}
	thresholds := churn.Thresholds{
		StoppedWeeks:       cfg.Analysis.StoppedWeeks,
		DeclinePct:         cfg.Analysis.DeclinePct,
		CriticalDeclinePct: cfg.Analysis.CriticalDeclinePct,
		VolatilityLimit:    cfg.Analysis.VolatilityThreshold,
	}
	return churn.NewEngine(windows, thresholds, nil, zerolog.Nop()),
		competitor.NewEngine(nil, nil, zerolog.Nop())
}

// churningOrders yields a customer whose chicken volume collapses from 100 to 20
// units per week, triggering a critical alert at the reference date.
func churningOrders() []ingest.RawOrder {
	dates := map[string]float64{
		"2025-12-08": 100, "2025-12-15": 100, "2025-12-22": 100, "2025-12-29": 100,
		"2026-01-05": 100, "2026-01-12": 100, "2026-01-19": 100, "2026-01-26": 100,
		"2026-02-05": 20, "2026-02-12": 20, "2026-02-19": 20, "2026-02-26": 20,
	}
	raw := make([]ingest.RawOrder, 0, len(dates))
	for date, qty := range dates {
		raw = append(raw, ingest.RawOrder{
			"customer_id": "C1",
			"product":     "chicken wings",
			"date":        date,
			"quantity":    qty,
			"value":       qty * 10,
		})
	}
	return raw
}

func testReference() time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
}

func TestAnalyzeChurnFullPipeline(t *testing.T) {
	cfg := testConfig()
	churnEngine, competitorEngine := testEngines(cfg)
	store := &fakeStore{}
	scorer := &fakeScorer{scores: []riskmodel.Score{{CustomerID: "C1", Category: "chicken", Probability: 0.9}}}
	notifier := &fakeNotifier{}

	svc := New(cfg, churnEngine, competitorEngine, store, store, scorer, notifier, zerolog.Nop())
	report, err := svc.AnalyzeChurn(context.Background(), churningOrders(), testReference())
	if err != nil {
		t.Fatalf("AnalyzeChurn: %v", err)
	}

	if len(report.Alerts) != 1 || report.Alerts[0].Severity != churn.SeverityCritical {
		t.Fatalf("unexpected alerts: %+v", report.Alerts)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("recommendations = %d, want 1", len(report.Recommendations))
	}
	if _, ok := report.CustomerProfiles["C1"]["chicken"]; !ok {
		t.Fatal("profile map should contain C1/chicken")
	}
	if len(report.RiskScores) != 1 || report.RiskScores[0].Probability != 0.9 {
		t.Fatalf("risk scores not attached: %+v", report.RiskScores)
	}
	if len(scorer.rows) != 1 {
		t.Fatalf("scorer should receive one feature row, got %d", len(scorer.rows))
	}

	if len(store.alerts) != 1 || store.alerts[0].CustomerID != "C1" {
		t.Fatalf("alerts not persisted: %+v", store.alerts)
	}
	if !store.alerts[0].RunAt.Equal(testReference()) {
		t.Fatalf("persisted run_at = %v, want reference date", store.alerts[0].RunAt)
	}

	if len(notifier.digests) != 1 {
		t.Fatalf("critical finding should dispatch a digest, got %d", len(notifier.digests))
	}
	if notifier.digests[0].CriticalAlerts != 1 {
		t.Fatalf("unexpected digest: %+v", notifier.digests[0])
	}
}

func TestAnalyzeChurnScorerFailureIsNonFatal(t *testing.T) {
	cfg := testConfig()
	churnEngine, competitorEngine := testEngines(cfg)
	scorer := &fakeScorer{err: errors.New("model down")}

	svc := New(cfg, churnEngine, competitorEngine, nil, nil, scorer, nil, zerolog.Nop())
	report, err := svc.AnalyzeChurn(context.Background(), churningOrders(), testReference())
	if err != nil {
		t.Fatalf("scoring failure should not fail the run: %v", err)
	}
	if report.RiskScores != nil {
		t.Fatalf("failed scoring should leave scores empty, got %+v", report.RiskScores)
	}
	if len(report.Alerts) != 1 {
		t.Fatalf("alerts should still be produced, got %d", len(report.Alerts))
	}
}

func TestAnalyzeChurnNoDigestWithoutCritical(t *testing.T) {
	cfg := testConfig()
	churnEngine, competitorEngine := testEngines(cfg)
	notifier := &fakeNotifier{}

	svc := New(cfg, churnEngine, competitorEngine, nil, nil, nil, notifier, zerolog.Nop())
	if _, err := svc.AnalyzeChurn(context.Background(), nil, testReference()); err != nil {
		t.Fatalf("AnalyzeChurn: %v", err)
	}
	if len(notifier.digests) != 0 {
		t.Fatalf("empty run should not dispatch a digest, got %d", len(notifier.digests))
	}
}

func TestAnalyzeCompetitorsPersistsSignals(t *testing.T) {
	cfg := testConfig()
	churnEngine, competitorEngine := testEngines(cfg)
	store := &fakeStore{}

	raw := []ingest.RawOrder{
		{"customer_id": "C1", "product": "chicken", "date": "2026-01-01", "quantity": float64(50), "value": float64(500)},
		{"customer_id": "C1", "product": "chicken", "date": "2026-01-08", "quantity": float64(50), "value": float64(500)},
		{"customer_id": "C1", "product": "chicken", "date": "2026-01-15", "quantity": float64(50), "value": float64(500)},
		{"customer_id": "C1", "product": "chicken", "date": "2026-02-01", "quantity": float64(0), "value": float64(0)},
		{"customer_id": "C1", "product": "chicken", "date": "2026-02-08", "quantity": float64(0), "value": float64(0)},
		{"customer_id": "C1", "product": "chicken", "date": "2026-02-15", "quantity": float64(0), "value": float64(0)},
	}

	svc := New(cfg, churnEngine, competitorEngine, store, store, nil, nil, zerolog.Nop())
	report, err := svc.AnalyzeCompetitors(context.Background(), raw, testReference())
	if err != nil {
		t.Fatalf("AnalyzeCompetitors: %v", err)
	}

	if len(report.CompetitorSignals) != 1 {
		t.Fatalf("signals = %d, want 1", len(report.CompetitorSignals))
	}
	if len(report.RetentionStrategies) != 1 {
		t.Fatalf("strategies = %d, want 1", len(report.RetentionStrategies))
	}
	if len(store.signals) != 1 || store.signals[0].SignalType != competitor.SignalCompleteLoss {
		t.Fatalf("signals not persisted: %+v", store.signals)
	}
}

func TestProcessTickHonorsAdvisoryLock(t *testing.T) {
	cfg := testConfig()
	churnEngine, competitorEngine := testEngines(cfg)
	store := &fakeStore{lockHeld: true}

	loaded := false
	load := func() ([]ingest.RawOrder, error) {
		loaded = true
		return nil, nil
	}

	svc := New(cfg, churnEngine, competitorEngine, store, store, nil, nil, zerolog.Nop())
	if err := svc.ProcessTick(context.Background(), testReference(), load); err != nil {
		t.Fatalf("held lock should skip, not fail: %v", err)
	}
	if loaded {
		t.Fatal("orders should not load when the lock is held elsewhere")
	}
	if store.lockCalls != 1 {
		t.Fatalf("lock attempts = %d, want 1", store.lockCalls)
	}

	store.lockHeld = false
	if err := svc.ProcessTick(context.Background(), testReference(), load); err != nil {
		t.Fatalf("ProcessTick: %v", err)
	}
	if !loaded {
		t.Fatal("orders should load once the lock is acquired")
	}
}
