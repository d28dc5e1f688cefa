package competitor

import "strings"

// Archetype describes one competitor class: the categories it typically wins, the
// signal keywords that indicate it, and its usual price advantage.
type Archetype struct {
	Name                string
	Indicators          []string
	TypicalAdvantagePct float64
	Categories          []string
}

// ArchetypeTable is an ordered archetype list. Ties in scoring resolve to the
// earliest-declared archetype.
type ArchetypeTable []Archetype

// Unknown archetype defaults when nothing scores.
const (
	unknownArchetype    = "unknown"
	unknownAdvantagePct = 10
	categoryMatchScore  = 30
	indicatorMatchScore = 25
)

// DefaultArchetypeTable returns the built-in competitor archetypes.
func DefaultArchetypeTable() ArchetypeTable {
	return ArchetypeTable{
		{
			Name:                "cash_and_carry",
			Indicators:          []string{"bulk_increase", "frequency_drop", "value_items_gone"},
			TypicalAdvantagePct: 15,
			Categories:          []string{"drinks", "frozen", "dry_goods", "cleaning"},
		},
		{
			Name:                "wholesaler",
			Indicators:          []string{"volume_drop", "premium_items_kept", "basics_gone"},
			TypicalAdvantagePct: 10,
			Categories:          []string{"chicken", "meat", "produce", "dairy"},
		},
		{
			Name:                "direct_manufacturer",
			Indicators:          []string{"single_category_loss", "complete_stop", "high_volume_history"},
			TypicalAdvantagePct: 20,
			Categories:          []string{"drinks", "branded_goods", "packaging"},
		},
		{
			Name:                "online",
			Indicators:          []string{"gradual_decline", "small_items_first", "non_urgent_items"},
			TypicalAdvantagePct: 12,
			Categories:          []string{"consumables", "packaging", "disposables"},
		},
	}
}

// Infer scores every archetype against the category and the detected signal types and
// returns the best match with its typical price advantage. Nothing scoring above zero
// falls back to the unknown archetype with a 10% assumed advantage.
func (t ArchetypeTable) Infer(category string, signals []PatternSignal) (string, float64) {
	best := unknownArchetype
	bestScore := 0
	advantage := float64(unknownAdvantagePct)

	for _, arch := range t {
		score := 0
		for _, c := range arch.Categories {
			if c == category {
				score += categoryMatchScore
				break
			}
		}
		for _, indicator := range arch.Indicators {
			if anySignalContains(signals, indicator) {
				score += indicatorMatchScore
			}
		}

		if score > bestScore {
			bestScore = score
			best = arch.Name
			advantage = arch.TypicalAdvantagePct
		}
	}

	return best, advantage
}

func anySignalContains(signals []PatternSignal, indicator string) bool {
	for _, s := range signals {
		if strings.Contains(s.Type, indicator) {
			return true
		}
	}
	return false
}
