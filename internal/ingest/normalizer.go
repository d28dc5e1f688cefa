package ingest

import "strings"

// Category pairs a canonical category name with the synonym substrings that map to it.
type Category struct {
	Name     string
	Synonyms []string
}

// CategoryTable is an ordered synonym table. Earlier entries win when synonyms of
// several categories match the same label, so declaration order is a priority order.
type CategoryTable []Category

// DefaultCategoryTable returns the built-in food-service category mapping.
func DefaultCategoryTable() CategoryTable {
	return CategoryTable{
		{Name: "chicken", Synonyms: []string{"chicken", "poultry", "wings", "breast", "thighs"}},
		{Name: "drinks", Synonyms: []string{"drinks", "beverages", "soft drinks", "cola", "water", "juice"}},
		{Name: "cheese", Synonyms: []string{"cheese", "dairy", "cheddar", "mozzarella"}},
		{Name: "dips", Synonyms: []string{"dips", "sauce", "condiments", "mayo", "ketchup"}},
		{Name: "produce", Synonyms: []string{"vegetables", "produce", "salad", "lettuce", "tomato"}},
	}
}

// Normalizer maps free-text product labels onto canonical categories.
type Normalizer struct {
	table CategoryTable
}

// NewNormalizer builds a Normalizer. A nil table selects the default mapping.
func NewNormalizer(table CategoryTable) *Normalizer {
	if table == nil {
		table = DefaultCategoryTable()
	}
	return &Normalizer{table: table}
}

// Normalize resolves a raw product label to its canonical category. Matching is
// case-insensitive substring matching in table order; unmatched labels pass through
// lower-cased.
func (n *Normalizer) Normalize(raw string) string {
	lower := strings.ToLower(raw)
	for _, cat := range n.table {
		for _, syn := range cat.Synonyms {
			if strings.Contains(lower, syn) {
				return cat.Name
			}
		}
	}
	return lower
}
