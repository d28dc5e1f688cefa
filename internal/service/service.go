package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"churn-alerts/internal/alerting"
	"churn-alerts/internal/churn"
	"churn-alerts/internal/competitor"
	"churn-alerts/internal/config"
	"churn-alerts/internal/ingest"
	"churn-alerts/internal/recommend"
	"churn-alerts/internal/riskmodel"
	"churn-alerts/internal/storage"
)

// ChurnReport is the full deterministic-engine output for one run.
type ChurnReport struct {
	Alerts           []churn.Alert                       `json:"alerts"`
	CustomerProfiles map[string]map[string]churn.Profile `json:"customer_profiles"`
	Summary          churn.Summary                       `json:"summary"`
	Recommendations  []recommend.Action                  `json:"recommendations"`
	RiskScores       []riskmodel.Score                   `json:"risk_scores,omitempty"`
}

// CompetitorReport is the full competitor-engine output for one run.
type CompetitorReport struct {
	CompetitorSignals   []competitor.Signal                                  `json:"competitor_signals"`
	PriceSensitivity    map[string]map[string]competitor.SensitivityProfile `json:"price_sensitivity"`
	RetentionStrategies []recommend.Strategy                                 `json:"retention_strategies"`
	Summary             competitor.Summary                                   `json:"summary"`
}

// Service orchestrates the engines, persistence, scoring, and alert dispatch.
type Service struct {
	churnEngine      *churn.Engine
	competitorEngine *competitor.Engine
	alertStore       storage.AlertStore
	signalStore      storage.SignalStore
	scorer           riskmodel.Scorer
	notifier         alerting.Notifier
	logger           zerolog.Logger

	maxActions    int
	maxStrategies int
	channels      []string
	alertsOn      bool
	locker        storage.AdvisoryLocker
	lockKey       int64
}

// New constructs the analysis service. Store, scorer, and notifier are optional;
// their absence disables the corresponding concern without affecting the engines.
func New(cfg *config.Config, churnEngine *churn.Engine, competitorEngine *competitor.Engine,
	alertStore storage.AlertStore, signalStore storage.SignalStore,
	scorer riskmodel.Scorer, notifier alerting.Notifier, logger zerolog.Logger) *Service {

	var locker storage.AdvisoryLocker
	if l, ok := alertStore.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		churnEngine:      churnEngine,
		competitorEngine: competitorEngine,
		alertStore:       alertStore,
		signalStore:      signalStore,
		scorer:           scorer,
		notifier:         notifier,
		logger:           logger.With().Str("component", "service").Logger(),
		maxActions:       cfg.Analysis.MaxActions,
		maxStrategies:    cfg.Analysis.MaxStrategies,
		channels:         cfg.Alerting.Channels,
		alertsOn:         cfg.Alerting.Enabled,
		locker:           locker,
		lockKey:          cfg.Watch.AdvisoryLockKey,
	}
}

// AnalyzeChurn runs the deterministic churn engine over the raw batch, attaches risk
// scores when a model is configured, persists alerts, and dispatches a digest for
// critical findings.
func (s *Service) AnalyzeChurn(ctx context.Context, raw []ingest.RawOrder, reference time.Time) (*ChurnReport, error) {
	if s.churnEngine == nil {
		return nil, fmt.Errorf("churn engine not configured")
	}

	result := s.churnEngine.Analyze(raw, reference)

	report := &ChurnReport{
		Alerts:           result.Alerts,
		CustomerProfiles: result.ProfileMap(),
		Summary:          result.Summary,
		Recommendations:  recommend.RankAlerts(result.Alerts, s.maxActions),
	}

	if s.scorer != nil {
		rows := riskmodel.RowsFromProfiles(result.Profiles, reference)
		scores, err := s.scorer.ScoreFeatures(ctx, rows)
		if err != nil {
			s.logger.Warn().Err(err).Msg("risk model scoring failed; continuing without scores")
		} else {
			report.RiskScores = scores
		}
	}

	if s.alertStore != nil && len(result.Alerts) > 0 {
		if err := s.alertStore.InsertAlerts(ctx, alertRecords(reference, result.Alerts)); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist alerts")
		}
	}

	s.dispatchDigest(ctx, reference, report)

	return report, nil
}

// AnalyzeCompetitors runs the signal/competitor-inference engine over the raw batch
// and persists the detected signals.
func (s *Service) AnalyzeCompetitors(ctx context.Context, raw []ingest.RawOrder, reference time.Time) (*CompetitorReport, error) {
	if s.competitorEngine == nil {
		return nil, fmt.Errorf("competitor engine not configured")
	}

	result := s.competitorEngine.Analyze(raw, reference)

	report := &CompetitorReport{
		CompetitorSignals:   result.Signals,
		PriceSensitivity:    result.SensitivityMap(),
		RetentionStrategies: recommend.BuildStrategies(result, s.maxStrategies),
		Summary:             result.Summary,
	}

	if s.signalStore != nil && len(result.Signals) > 0 {
		if err := s.signalStore.InsertSignals(ctx, signalRecords(reference, result.Signals)); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist signals")
		}
	}

	return report, nil
}

// ProcessTick executes one watch-loop iteration under the advisory lock, loading
// orders fresh each time so edits to the input file are picked up.
func (s *Service) ProcessTick(ctx context.Context, bucket time.Time, load func() ([]ingest.RawOrder, error)) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("run", bucket).Msg("skip run because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	raw, err := load()
	if err != nil {
		return err
	}

	_, err = s.AnalyzeChurn(ctx, raw, bucket)
	return err
}

func (s *Service) dispatchDigest(ctx context.Context, reference time.Time, report *ChurnReport) {
	if !s.alertsOn || s.notifier == nil || report.Summary.CriticalAlerts == 0 {
		return
	}

	topActions := make([]string, 0, 3)
	for _, rec := range report.Recommendations {
		if len(topActions) == 3 {
			break
		}
		topActions = append(topActions, fmt.Sprintf("%s/%s: %s", rec.CustomerID, rec.Category, rec.Action))
	}

	digest := alerting.Digest{
		RunAt:                reference,
		TotalAlerts:          report.Summary.TotalAlerts,
		CriticalAlerts:       report.Summary.CriticalAlerts,
		WarningAlerts:        report.Summary.WarningAlerts,
		EstimatedMonthlyLoss: report.Summary.TotalEstimatedMonthlyLoss,
		TopActions:           topActions,
		Channels:             s.channels,
	}
	if err := s.notifier.Notify(ctx, digest); err != nil {
		s.logger.Error().Err(err).Time("run", reference).Msg("failed to dispatch digest")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func alertRecords(runAt time.Time, alerts []churn.Alert) []storage.AlertRecord {
	records := make([]storage.AlertRecord, 0, len(alerts))
	for _, a := range alerts {
		records = append(records, storage.AlertRecord{
			RunAt:                runAt,
			CustomerID:           a.CustomerID,
			Category:             a.Category,
			SignalType:           string(a.SignalType),
			Severity:             string(a.Severity),
			BaselineQty:          a.BaselineQuantity,
			CurrentQty:           a.CurrentQuantity,
			DropPct:              a.DropPercentage,
			WeeksSinceLastOrder:  a.WeeksSinceLastOrder,
			EstimatedLostRevenue: a.EstimatedLostRevenue,
			CompetitorLikely:     a.CompetitorLikely,
			RecommendedDiscount:  a.RecommendedDiscount,
		})
	}
	return records
}

func signalRecords(runAt time.Time, signals []competitor.Signal) []storage.SignalRecord {
	records := make([]storage.SignalRecord, 0, len(signals))
	for _, sig := range signals {
		records = append(records, storage.SignalRecord{
			RunAt:              runAt,
			CustomerID:         sig.CustomerID,
			Category:           sig.Category,
			SignalType:         sig.SignalType,
			Strength:           sig.SignalStrength,
			CompetitorType:     sig.LikelyCompetitorType,
			PriceAdvantagePct:  sig.EstimatedCompetitorPriceAdvantage,
			WinBackProbability: sig.WinBackProbability,
		})
	}
	return records
}
