package churn

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"churn-alerts/internal/ingest"
)

// Summary aggregates one run's alerts into portfolio-level figures.
type Summary struct {
	TotalCustomers            int             `json:"total_customers"`
	CustomersWithAlerts       int             `json:"customers_with_alerts"`
	TotalAlerts               int             `json:"total_alerts"`
	CriticalAlerts            int             `json:"critical_alerts"`
	WarningAlerts             int             `json:"warning_alerts"`
	WatchAlerts               int             `json:"watch_alerts"`
	TotalEstimatedMonthlyLoss decimal.Decimal `json:"total_estimated_monthly_loss"`
	CategoriesAtRisk          []string        `json:"categories_at_risk"`
	CompetitorSignals         int             `json:"competitor_signals"`
}

// Result is the output of one deterministic churn analysis run.
type Result struct {
	Alerts   []Alert
	Profiles []Profile
	Summary  Summary
	Dropped  int
}

// ProfileMap rearranges profiles into the per-customer, per-category report shape.
func (r Result) ProfileMap() map[string]map[string]Profile {
	out := make(map[string]map[string]Profile, len(r.Profiles))
	for _, p := range r.Profiles {
		if out[p.CustomerID] == nil {
			out[p.CustomerID] = make(map[string]Profile)
		}
		out[p.CustomerID][p.Category] = p
	}
	return out
}

// Engine runs the deterministic-threshold churn detection pipeline.
type Engine struct {
	grouper    *ingest.Grouper
	aggregator *Aggregator
	thresholds Thresholds
	logger     zerolog.Logger
}

// NewEngine constructs a churn engine over the given windows and thresholds. A nil
// grouper selects default ingestion.
func NewEngine(w Windows, th Thresholds, grouper *ingest.Grouper, logger zerolog.Logger) *Engine {
	if grouper == nil {
		grouper = ingest.NewGrouper(nil)
	}
	return &Engine{
		grouper:    grouper,
		aggregator: NewAggregator(w),
		thresholds: th,
		logger:     logger.With().Str("component", "churn_engine").Logger(),
	}
}

// Analyze groups the raw batch, profiles every customer-category pair, and emits
// alerts for declining or stopped pairs, ranked by severity then estimated loss.
func (e *Engine) Analyze(raw []ingest.RawOrder, reference time.Time) Result {
	grouped := e.grouper.Group(raw)

	result := Result{Dropped: grouped.Dropped}
	for _, cust := range grouped.Customers {
		for _, cat := range cust.Categories {
			orders := SortMostRecentFirst(cat.Orders)
			stats := e.aggregator.Aggregate(orders, reference)
			trend := Classify(stats.BaselineQtyRate, stats.CurrentQtyRate, stats.LastOrderAt, reference, e.thresholds)

			profile := NewProfile(cust.CustomerID, cat.Category, orders, stats, trend)
			profile.IrregularOrdering = profile.Irregular(e.thresholds)
			result.Profiles = append(result.Profiles, profile)

			if trend == TrendDeclining || trend == TrendStopped {
				result.Alerts = append(result.Alerts, BuildAlert(profile, reference, e.thresholds))
			}
		}
	}

	sort.SliceStable(result.Alerts, func(i, j int) bool {
		a, b := result.Alerts[i], result.Alerts[j]
		if ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity); ra != rb {
			return ra < rb
		}
		return a.EstimatedLostRevenue.GreaterThan(b.EstimatedLostRevenue)
	})

	result.Summary = summarize(grouped, result.Alerts)

	e.logger.Info().
		Int("customers", len(grouped.Customers)).
		Int("profiles", len(result.Profiles)).
		Int("alerts", len(result.Alerts)).
		Int("dropped_rows", grouped.Dropped).
		Time("reference", reference).
		Msg("churn analysis complete")

	return result
}

func summarize(grouped ingest.Grouped, alerts []Alert) Summary {
	s := Summary{
		TotalCustomers:            len(grouped.Customers),
		TotalAlerts:               len(alerts),
		TotalEstimatedMonthlyLoss: decimal.Zero,
	}

	customers := make(map[string]struct{})
	seenCategories := make(map[string]struct{})
	for _, a := range alerts {
		customers[a.CustomerID] = struct{}{}
		if _, seen := seenCategories[a.Category]; !seen {
			seenCategories[a.Category] = struct{}{}
			s.CategoriesAtRisk = append(s.CategoriesAtRisk, a.Category)
		}
		s.TotalEstimatedMonthlyLoss = s.TotalEstimatedMonthlyLoss.Add(a.EstimatedLostRevenue)

		switch a.Severity {
		case SeverityCritical:
			s.CriticalAlerts++
		case SeverityWarning:
			s.WarningAlerts++
		default:
			s.WatchAlerts++
		}
		if a.CompetitorLikely {
			s.CompetitorSignals++
		}
	}

	s.CustomersWithAlerts = len(customers)
	s.TotalEstimatedMonthlyLoss = s.TotalEstimatedMonthlyLoss.Round(2)
	return s
}
