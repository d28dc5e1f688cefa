package competitor

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"churn-alerts/internal/ingest"
)

// Signal is one detected indication of likely competitor activity for a
// customer-category pair.
type Signal struct {
	CustomerID                        string   `json:"customer_id"`
	Category                          string   `json:"category"`
	SignalStrength                    float64  `json:"signal_strength"`
	SignalType                        string   `json:"signal_type"`
	Evidence                          []string `json:"evidence"`
	LikelyCompetitorType              string   `json:"likely_competitor_type"`
	EstimatedCompetitorPriceAdvantage float64  `json:"estimated_competitor_price_advantage"`
	WinBackProbability                float64  `json:"win_back_probability"`
}

// Summary aggregates one run's competitor signals.
type Summary struct {
	TotalCustomersAnalyzed         int            `json:"total_customers_analyzed"`
	CustomersWithCompetitorSignals int            `json:"customers_with_competitor_signals"`
	TotalSignals                   int            `json:"total_signals"`
	SignalsByType                  map[string]int `json:"signals_by_type"`
	SignalsByCompetitor            map[string]int `json:"signals_by_competitor"`
	AvgWinBackProbability          float64        `json:"avg_win_back_probability"`
	CategoriesMostAtRisk           []string       `json:"categories_most_at_risk"`
}

// Result is the output of one competitor-inference run.
type Result struct {
	Signals     []Signal
	Sensitivity []SensitivityProfile
	Summary     Summary
	Dropped     int
}

// SensitivityMap rearranges profiles into the per-customer, per-category report shape.
func (r Result) SensitivityMap() map[string]map[string]SensitivityProfile {
	out := make(map[string]map[string]SensitivityProfile)
	for _, p := range r.Sensitivity {
		if out[p.CustomerID] == nil {
			out[p.CustomerID] = make(map[string]SensitivityProfile)
		}
		out[p.CustomerID][p.Category] = p
	}
	return out
}

// SensitivityFor looks up the sensitivity profile joined to a signal's identity.
func (r Result) SensitivityFor(customerID, category string) (SensitivityProfile, bool) {
	for _, p := range r.Sensitivity {
		if p.CustomerID == customerID && p.Category == category {
			return p, true
		}
	}
	return SensitivityProfile{}, false
}

// defaultWeeksSinceLoss stands in when a category has no parseable order dates.
const defaultWeeksSinceLoss = 4

// topCategoryCount caps the at-risk category list in the summary.
const topCategoryCount = 5

// Engine runs the signal/competitor-inference rule set over grouped orders.
type Engine struct {
	grouper    *ingest.Grouper
	archetypes ArchetypeTable
	logger     zerolog.Logger
}

// NewEngine constructs a competitor-inference engine. Nil grouper or archetype table
// selects the defaults.
func NewEngine(grouper *ingest.Grouper, archetypes ArchetypeTable, logger zerolog.Logger) *Engine {
	if grouper == nil {
		grouper = ingest.NewGrouper(nil)
	}
	if archetypes == nil {
		archetypes = DefaultArchetypeTable()
	}
	return &Engine{
		grouper:    grouper,
		archetypes: archetypes,
		logger:     logger.With().Str("component", "competitor_engine").Logger(),
	}
}

// Analyze detects competitor signals and computes a price sensitivity profile for
// every customer-category pair, returning signals sorted by descending strength.
func (e *Engine) Analyze(raw []ingest.RawOrder, reference time.Time) Result {
	grouped := e.grouper.Group(raw)

	result := Result{Dropped: grouped.Dropped}
	for _, cust := range grouped.Customers {
		for _, cat := range cust.Categories {
			patterns := DetectPatterns(cat.Orders)
			sensitivity := PriceSensitivity(cust.CustomerID, cat.Category, cat.Orders)
			result.Sensitivity = append(result.Sensitivity, sensitivity)

			if len(patterns.Signals) == 0 {
				continue
			}

			compType, advantage := e.archetypes.Infer(cat.Category, patterns.Signals)
			strength := meanStrength(patterns.Signals)
			weeksSince := weeksSinceLoss(cat.Orders, reference)
			winBack := WinBackProbability(strength, weeksSince, sensitivity.SensitivityScore, advantage)

			result.Signals = append(result.Signals, Signal{
				CustomerID:                        cust.CustomerID,
				Category:                          cat.Category,
				SignalStrength:                    roundTo(strength, 1),
				SignalType:                        patterns.Signals[0].Type,
				Evidence:                          evidence(patterns.Signals),
				LikelyCompetitorType:              compType,
				EstimatedCompetitorPriceAdvantage: advantage,
				WinBackProbability:                roundTo(winBack, 2),
			})
		}
	}

	sort.SliceStable(result.Signals, func(i, j int) bool {
		return result.Signals[i].SignalStrength > result.Signals[j].SignalStrength
	})

	result.Summary = summarize(grouped, result.Signals)

	e.logger.Info().
		Int("customers", len(grouped.Customers)).
		Int("signals", len(result.Signals)).
		Int("dropped_rows", grouped.Dropped).
		Time("reference", reference).
		Msg("competitor analysis complete")

	return result
}

// weeksSinceLoss estimates how long ago the category was lost from the last parseable
// order date, with a one-week floor and a four-week default for undated histories.
func weeksSinceLoss(orders []ingest.Order, reference time.Time) int {
	var latest time.Time
	for _, o := range orders {
		if o.HasDate() && o.PlacedAt.After(latest) {
			latest = o.PlacedAt
		}
	}
	if latest.IsZero() {
		return defaultWeeksSinceLoss
	}

	weeks := int(reference.Sub(latest).Hours() / (24 * 7))
	if weeks < 1 {
		weeks = 1
	}
	return weeks
}

func meanStrength(signals []PatternSignal) float64 {
	sum := 0.0
	for _, s := range signals {
		sum += s.Strength
	}
	return sum / float64(len(signals))
}

func evidence(signals []PatternSignal) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Description)
	}
	return out
}

func summarize(grouped ingest.Grouped, signals []Signal) Summary {
	s := Summary{
		TotalCustomersAnalyzed: len(grouped.Customers),
		TotalSignals:           len(signals),
		SignalsByType:          make(map[string]int),
		SignalsByCompetitor:    make(map[string]int),
	}

	customers := make(map[string]struct{})
	categoryCounts := make(map[string]int)
	var categoryOrder []string
	winBackSum := 0.0

	for _, sig := range signals {
		customers[sig.CustomerID] = struct{}{}
		s.SignalsByType[sig.SignalType]++
		s.SignalsByCompetitor[sig.LikelyCompetitorType]++
		if categoryCounts[sig.Category] == 0 {
			categoryOrder = append(categoryOrder, sig.Category)
		}
		categoryCounts[sig.Category]++
		winBackSum += sig.WinBackProbability
	}

	s.CustomersWithCompetitorSignals = len(customers)
	if len(signals) > 0 {
		s.AvgWinBackProbability = roundTo(winBackSum/float64(len(signals)), 2)
	}

	sort.SliceStable(categoryOrder, func(i, j int) bool {
		return categoryCounts[categoryOrder[i]] > categoryCounts[categoryOrder[j]]
	})
	if len(categoryOrder) > topCategoryCount {
		categoryOrder = categoryOrder[:topCategoryCount]
	}
	s.CategoriesMostAtRisk = categoryOrder

	return s
}
